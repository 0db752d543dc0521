// Pacote results guarda o snapshot publicado da apuração de cada eleição.
package results

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/ids"
	"github.com/marcelojr/e-voting/internal/platform/logger"
)

type Store struct {
	repo  domain.ResultRepository
	clock domain.Clock
	ids   *ids.Generator
	log   *slog.Logger
}

func NewStore(repo domain.ResultRepository, clock domain.Clock, idsGen *ids.Generator) *Store {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Store{repo: repo, clock: clock, ids: idsGen, log: logger.With("results")}
}

// PublishResults substitui atomicamente o snapshot da eleição; republicar nunca duplica linhas.
// Um mapa vazio limpa o snapshot anterior.
func (s *Store) PublishResults(ctx context.Context, election domain.ElectionID, counts domain.Tally) error {
	if election == "" {
		return fmt.Errorf("%w: id da eleicao obrigatorio", domain.ErrValidation)
	}

	agora := s.clock.Agora()
	rows := make([]domain.Result, 0, len(counts))
	for _, c := range counts.Candidates() {
		n := counts[c]
		if n < 0 {
			return fmt.Errorf("%w: contagem negativa para candidato %d", domain.ErrValidation, c)
		}
		rows = append(rows, domain.Result{
			ID:          domain.ResultID(s.ids.NewAt(agora)),
			ElectionID:  election,
			CandidateID: c,
			VoteCount:   n,
			ComputedAt:  agora,
		})
	}

	if err := s.repo.Replace(ctx, election, rows); err != nil {
		return err
	}
	s.log.Info("resultado publicado", "eleicao", election, "linhas", len(rows), "total", counts.Total())
	return nil
}

// GetResults ordena por votos (desc) e candidato (asc).
func (s *Store) GetResults(ctx context.Context, election domain.ElectionID) ([]domain.Result, error) {
	if election == "" {
		return nil, fmt.Errorf("%w: id da eleicao obrigatorio", domain.ErrValidation)
	}
	return s.repo.ListByElection(ctx, election)
}
