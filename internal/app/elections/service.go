// Pacote elections é o registro de eleições: cadastro, candidatos e máquina de status.
package elections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/ids"
	"github.com/marcelojr/e-voting/internal/platform/logger"
)

// NewElection são os dados informados na criação; id, status e datas de auditoria são do serviço.
type NewElection struct {
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	StartAt      time.Time            `json:"startAt"`
	EndAt        time.Time            `json:"endAt"`
	CandidateIDs []domain.CandidateID `json:"candidateIds"`
}

type Service struct {
	repo   domain.ElectionRepository
	clock  domain.Clock
	ids    *ids.Generator
	strict bool
	log    *slog.Logger
}

type Option func(*Service)

// WithStrictTransitions liga/desliga a tabela de transições. Desligado, qualquer destino
// é aceito exceto voltar para DRAFT.
func WithStrictTransitions(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(repo domain.ElectionRepository, clock domain.Clock, idsGen *ids.Generator, opts ...Option) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	s := &Service{
		repo:   repo,
		clock:  clock,
		ids:    idsGen,
		strict: true,
		log:    logger.With("elections"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateElection(ctx context.Context, in NewElection) (domain.Election, error) {
	if err := validarNovaEleicao(in); err != nil {
		return domain.Election{}, err
	}

	agora := s.clock.Agora()
	e := domain.Election{
		ID:           domain.ElectionID(s.ids.NewAt(agora)),
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		StartAt:      in.StartAt,
		EndAt:        in.EndAt,
		Status:       domain.StatusDraft,
		CandidateIDs: dedupe(in.CandidateIDs),
		CreatedAt:    agora,
		UpdatedAt:    agora,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return domain.Election{}, err
	}
	s.log.Info("eleicao criada", "eleicao", e.ID, "candidatos", len(e.CandidateIDs))
	return e, nil
}

func (s *Service) GetElection(ctx context.Context, id domain.ElectionID) (domain.Election, error) {
	if id == "" {
		return domain.Election{}, fmt.Errorf("%w: id da eleicao obrigatorio", domain.ErrValidation)
	}
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListElections(ctx context.Context) ([]domain.Election, error) {
	return s.repo.List(ctx)
}

// GetPublicElections devolve só eleições OPEN, sem ordem garantida.
func (s *Service) GetPublicElections(ctx context.Context) ([]domain.Election, error) {
	return s.repo.ListByStatus(ctx, domain.StatusOpen)
}

func (s *Service) AddCandidate(ctx context.Context, id domain.ElectionID, candidate domain.CandidateID) (domain.Election, error) {
	if candidate <= 0 {
		return domain.Election{}, fmt.Errorf("%w: candidato invalido %d", domain.ErrValidation, candidate)
	}
	if err := s.repo.AddCandidate(ctx, id, candidate, domain.StatusDraft, s.clock.Agora()); err != nil {
		return domain.Election{}, err
	}
	return s.repo.FindByID(ctx, id)
}

// UpdateStatus grava o novo status numa única escrita condicional; a origem é validada
// pelo próprio banco, então duas chamadas concorrentes não atravessam a tabela juntas.
func (s *Service) UpdateStatus(ctx context.Context, id domain.ElectionID, to domain.ElectionStatus) (domain.Election, error) {
	if !to.Valid() {
		return domain.Election{}, fmt.Errorf("%w: status desconhecido %q", domain.ErrValidation, to)
	}

	if err := s.repo.UpdateStatus(ctx, id, to, allowedSources(to, s.strict), s.clock.Agora()); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			s.log.Warn("transicao rejeitada", "eleicao", id, "destino", to, "err", err)
		}
		return domain.Election{}, err
	}

	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Election{}, err
	}
	s.log.Info("status atualizado", "eleicao", id, "status", e.Status)
	return e, nil
}

func (s *Service) DeleteElection(ctx context.Context, id domain.ElectionID) error {
	if err := s.repo.Delete(ctx, id, domain.StatusDraft); err != nil {
		return err
	}
	s.log.Info("eleicao removida", "eleicao", id)
	return nil
}

// IsCandidate responde se o candidato pertence à eleição; ErrNotFound se a eleição não existe.
func (s *Service) IsCandidate(ctx context.Context, id domain.ElectionID, candidate domain.CandidateID) (bool, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return e.HasCandidate(candidate), nil
}

func validarNovaEleicao(in NewElection) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: titulo obrigatorio", domain.ErrValidation)
	}
	if !in.StartAt.IsZero() && !in.EndAt.IsZero() && in.EndAt.Before(in.StartAt) {
		return fmt.Errorf("%w: fim anterior ao inicio", domain.ErrValidation)
	}
	for _, c := range in.CandidateIDs {
		if c <= 0 {
			return fmt.Errorf("%w: candidato invalido %d", domain.ErrValidation, c)
		}
	}
	return nil
}

func dedupe(candidates []domain.CandidateID) []domain.CandidateID {
	seen := make(map[domain.CandidateID]struct{}, len(candidates))
	out := make([]domain.CandidateID, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
