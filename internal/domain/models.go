package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type (
	ElectionID string
	VoteID     string
	ResultID   string

	CandidateID int64
	VoterID     int64
)

// ElectionStatus é o conjunto fechado de estados de uma eleição.
type ElectionStatus string

const (
	StatusDraft     ElectionStatus = "DRAFT"
	StatusPublished ElectionStatus = "PUBLISHED"
	StatusOpen      ElectionStatus = "OPEN"
	StatusClosed    ElectionStatus = "CLOSED"
	StatusArchived  ElectionStatus = "ARCHIVED"
)

var allStatuses = []ElectionStatus{StatusDraft, StatusPublished, StatusOpen, StatusClosed, StatusArchived}

func ParseElectionStatus(raw string) (ElectionStatus, error) {
	candidate := ElectionStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, s := range allStatuses {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: status desconhecido %q", ErrValidation, raw)
}

func (s ElectionStatus) Valid() bool {
	_, err := ParseElectionStatus(string(s))
	return err == nil
}

// Election guarda os candidatos como conjunto: a ordem não tem significado.
type Election struct {
	ID           ElectionID     `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	Title        string         `gorm:"column:title;type:text;not null" json:"title"`
	Description  string         `gorm:"column:description;type:text" json:"description"`
	StartAt      time.Time      `gorm:"column:start_at" json:"startAt"`
	EndAt        time.Time      `gorm:"column:end_at" json:"endAt"`
	Status       ElectionStatus `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	CandidateIDs []CandidateID  `gorm:"-" json:"candidateIds"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updatedAt"`
}

func (e Election) HasCandidate(id CandidateID) bool {
	for _, c := range e.CandidateIDs {
		if c == id {
			return true
		}
	}
	return false
}

// ElectionCandidate é a linha da tabela de associação eleição x candidato.
type ElectionCandidate struct {
	ElectionID  ElectionID  `gorm:"column:election_id;type:char(26);primaryKey"`
	CandidateID CandidateID `gorm:"column:candidate_id;primaryKey;autoIncrement:false"`
}

type Vote struct {
	ID          VoteID      `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	ElectionID  ElectionID  `gorm:"column:election_id;type:char(26);not null;uniqueIndex:idx_votes_election_voter,priority:1" json:"electionId"`
	VoterID     VoterID     `gorm:"column:voter_id;not null;uniqueIndex:idx_votes_election_voter,priority:2;index:idx_votes_voter" json:"voterId"`
	CandidateID CandidateID `gorm:"column:candidate_id;not null" json:"candidateId"`
	CreatedAt   time.Time   `gorm:"column:created_at;not null" json:"createdAt"`
}

type Result struct {
	ID          ResultID    `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	ElectionID  ElectionID  `gorm:"column:election_id;type:char(26);not null;index:idx_results_election" json:"electionId"`
	CandidateID CandidateID `gorm:"column:candidate_id;not null" json:"candidateId"`
	VoteCount   int64       `gorm:"column:vote_count;not null" json:"voteCount"`
	ComputedAt  time.Time   `gorm:"column:computed_at;not null" json:"computedAt"`
}

// Tally conta votos por candidato; candidato ausente equivale a zero.
type Tally map[CandidateID]int64

func (t Tally) Total() int64 {
	var total int64
	for _, n := range t {
		total += n
	}
	return total
}

// Candidates devolve as chaves ordenadas, útil para saída determinística.
func (t Tally) Candidates() []CandidateID {
	ids := make([]CandidateID, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (Election) TableName() string { return "elections" }

func (ElectionCandidate) TableName() string { return "election_candidates" }

func (Vote) TableName() string { return "votes" }

func (Result) TableName() string { return "results" }
