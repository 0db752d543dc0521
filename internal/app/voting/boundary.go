package voting

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/antifraude"
	"github.com/marcelojr/e-voting/internal/platform/metrics"
)

// ElectionLookup é o recorte do registro de eleições usado pela fronteira de voto.
type ElectionLookup interface {
	GetElection(ctx context.Context, id domain.ElectionID) (domain.Election, error)
}

// Boundary aplica as pré-condições do voto antes de chegar ao Ledger: eleição OPEN,
// candidato pertencente à eleição e limite de tentativas.
type Boundary struct {
	eleicoes   ElectionLookup
	ledger     *Ledger
	antifraude domain.Antifraude
}

func NewBoundary(eleicoes ElectionLookup, ledger *Ledger, af domain.Antifraude) *Boundary {
	return &Boundary{eleicoes: eleicoes, ledger: ledger, antifraude: af}
}

func (b *Boundary) Cast(ctx context.Context, voter domain.VoterID, election domain.ElectionID, candidate domain.CandidateID) (domain.Vote, error) {
	v, err := b.cast(ctx, voter, election, candidate)
	metrics.ObserveVoteRequest(voteOutcome(err))
	return v, err
}

func (b *Boundary) cast(ctx context.Context, voter domain.VoterID, election domain.ElectionID, candidate domain.CandidateID) (domain.Vote, error) {
	if err := validarVoto(voter, election, candidate); err != nil {
		return domain.Vote{}, err
	}

	e, err := b.eleicoes.GetElection(ctx, election)
	if err != nil {
		return domain.Vote{}, err
	}
	if e.Status != domain.StatusOpen {
		return domain.Vote{}, fmt.Errorf("%w: eleicao em %s nao aceita votos", domain.ErrInvalidState, e.Status)
	}
	if !e.HasCandidate(candidate) {
		return domain.Vote{}, fmt.Errorf("%w: candidato %d nao pertence a eleicao", domain.ErrValidation, candidate)
	}

	if b.antifraude != nil {
		if err := b.antifraude.Validar(ctx, domain.VoteAttempt{ElectionID: election, VoterID: voter}); err != nil {
			return domain.Vote{}, err
		}
	}

	return b.ledger.CastVote(ctx, voter, election, candidate)
}

func voteOutcome(err error) string {
	switch {
	case err == nil:
		return "aceito"
	case errors.Is(err, domain.ErrDuplicateVote):
		return "duplicado"
	case errors.Is(err, antifraude.ErrRateLimitExceeded):
		return "limitado"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrNotFound):
		return "rejeitado"
	default:
		return "erro"
	}
}
