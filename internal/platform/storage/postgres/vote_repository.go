package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/e-voting/internal/domain"
)

// VoteRepository é o livro de votos. A unicidade (eleição, eleitor) fica a cargo do índice único.
type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

type voteModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	ElectionID  string    `gorm:"column:election_id"`
	VoterID     int64     `gorm:"column:voter_id"`
	CandidateID int64     `gorm:"column:candidate_id"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func fromDomainVote(v domain.Vote) voteModel {
	return voteModel{
		ID:          string(v.ID),
		ElectionID:  string(v.ElectionID),
		VoterID:     int64(v.VoterID),
		CandidateID: int64(v.CandidateID),
		CreatedAt:   v.CreatedAt,
	}
}

func (m voteModel) toDomain() domain.Vote {
	return domain.Vote{
		ID:          domain.VoteID(m.ID),
		ElectionID:  domain.ElectionID(m.ElectionID),
		VoterID:     domain.VoterID(m.VoterID),
		CandidateID: domain.CandidateID(m.CandidateID),
		CreatedAt:   m.CreatedAt,
	}
}

func (r *VoteRepository) Insert(ctx context.Context, v domain.Vote) error {
	model := fromDomainVote(v)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateVote
		}
		return fmt.Errorf("gorm votos: inserir: %w", err)
	}
	return nil
}

func (r *VoteRepository) ListByVoter(ctx context.Context, voter domain.VoterID) ([]domain.Vote, error) {
	var models []voteModel
	if err := r.db.WithContext(ctx).
		Where("voter_id = ?", int64(voter)).
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm votos: listar por eleitor: %w", err)
	}

	votes := make([]domain.Vote, len(models))
	for i, m := range models {
		votes[i] = m.toDomain()
	}
	return votes, nil
}

func (r *VoteRepository) CountByCandidate(ctx context.Context, election domain.ElectionID) (domain.Tally, error) {
	type resultado struct {
		CandidateID int64
		Total       int64
	}
	var res []resultado
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Select("candidate_id as candidate_id, COUNT(*) as total").
		Where("election_id = ?", string(election)).
		Group("candidate_id").
		Scan(&res).Error; err != nil {
		return nil, fmt.Errorf("gorm votos: apurar: %w", err)
	}

	tally := make(domain.Tally, len(res))
	for _, item := range res {
		tally[domain.CandidateID(item.CandidateID)] = item.Total
	}
	return tally, nil
}

func (r *VoteRepository) CountByElection(ctx context.Context, election domain.ElectionID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("election_id = ?", string(election)).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("gorm votos: total eleicao: %w", err)
	}
	return total, nil
}

var _ domain.VoteRepository = (*VoteRepository)(nil)
