package domain

import (
	"context"
	"time"
)

type ElectionRepository interface {
	Create(ctx context.Context, e Election) error
	FindByID(ctx context.Context, id ElectionID) (Election, error)
	List(ctx context.Context) ([]Election, error)
	ListByStatus(ctx context.Context, status ElectionStatus) ([]Election, error)
	// UpdateStatus só grava quando o status atual está em from (vazio = qualquer um);
	// caso contrário devolve ErrInvalidState. A checagem e a escrita são um único UPDATE.
	UpdateStatus(ctx context.Context, id ElectionID, to ElectionStatus, from []ElectionStatus, at time.Time) error
	// AddCandidate e Delete exigem que a eleição esteja em onlyIn (ErrInvalidState).
	AddCandidate(ctx context.Context, id ElectionID, candidate CandidateID, onlyIn ElectionStatus, at time.Time) error
	Delete(ctx context.Context, id ElectionID, onlyIn ElectionStatus) error
}

type VoteRepository interface {
	// Insert deve devolver ErrDuplicateVote quando o par (eleição, eleitor) já existe.
	Insert(ctx context.Context, v Vote) error
	ListByVoter(ctx context.Context, voter VoterID) ([]Vote, error)
	CountByCandidate(ctx context.Context, election ElectionID) (Tally, error)
	CountByElection(ctx context.Context, election ElectionID) (int64, error)
}

type ResultRepository interface {
	// Replace troca atomicamente todas as linhas da eleição pelas informadas.
	Replace(ctx context.Context, election ElectionID, rows []Result) error
	ListByElection(ctx context.Context, election ElectionID) ([]Result, error)
}

// Contador é um cache de contagens: ausência da chave significa "recalcular na fonte".
type Contador interface {
	// IncrementarSeExiste só soma quando a chave já foi semeada; ok=false indica chave ausente.
	IncrementarSeExiste(ctx context.Context, chave string, delta int64) (valor int64, ok bool, err error)
	Obter(ctx context.Context, chave string) (valor int64, ok bool, err error)
	// Semear grava o valor apenas se a chave não existir, com expiração.
	Semear(ctx context.Context, chave string, valor int64, ttl time.Duration) (bool, error)
}

// PublishJob é a mensagem trocada entre API e worker para publicação assíncrona.
type PublishJob struct {
	ElectionID  ElectionID `json:"election_id"`
	RequestedAt time.Time  `json:"requested_at"`
	RequestID   string     `json:"request_id,omitempty"`
}

type Fila interface {
	PublicarJob(ctx context.Context, job PublishJob) error
	ConsumirJobs(ctx context.Context, handler func(context.Context, PublishJob) error) error
}

// VoteAttempt identifica uma tentativa de voto para fins de antifraude.
type VoteAttempt struct {
	ElectionID ElectionID
	VoterID    VoterID
}

type Antifraude interface {
	Validar(ctx context.Context, tentativa VoteAttempt) error
}

// Locker garante no máximo uma orquestração em voo por chave.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

type Clock interface {
	Agora() time.Time
}
