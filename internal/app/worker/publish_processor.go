// Pacote worker processa os jobs de publicação enfileirados pela API.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelojr/e-voting/internal/app/publish"
	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/logger"
	"github.com/marcelojr/e-voting/internal/platform/metrics"
)

// Runner é o recorte do orquestrador usado pelo worker.
type Runner interface {
	Run(ctx context.Context, id domain.ElectionID) (publish.Report, error)
}

// PublishProcessor executa um job por vez, sem retentativa: um job que falha é registrado e
// descartado, e o operador decide se retoma.
type PublishProcessor struct {
	runner Runner
	log    *slog.Logger
}

func NewPublishProcessor(runner Runner) *PublishProcessor {
	return &PublishProcessor{runner: runner, log: logger.With("worker")}
}

func (p *PublishProcessor) Process(ctx context.Context, job domain.PublishJob) error {
	start := time.Now()
	log := p.log.With("eleicao", job.ElectionID, "request_id", job.RequestID)
	if !job.RequestedAt.IsZero() {
		log = log.With("espera_ms", start.Sub(job.RequestedAt).Milliseconds())
	}

	report, err := p.runner.Run(ctx, job.ElectionID)
	outcome := jobOutcome(report, err)
	metrics.ObservePublishJob(outcome)

	if err != nil {
		var stepErr *publish.StepError
		if errors.As(err, &stepErr) {
			log.Error("publicacao interrompida", "etapa", stepErr.Step, "status", stepErr.Status, "err", stepErr.Err)
		} else {
			log.Error("publicacao rejeitada", "resultado", outcome, "err", err)
		}
		return fmt.Errorf("worker: publicar %s: %w", job.ElectionID, err)
	}

	log.Info("publicacao processada",
		"run_id", report.RunID,
		"resultado", outcome,
		"status_final", report.FinalStatus,
		"duracao_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func jobOutcome(report publish.Report, err error) string {
	var stepErr *publish.StepError
	switch {
	case err == nil && report.AlreadyArchived:
		return "ja_arquivada"
	case err == nil:
		return "sucesso"
	case errors.Is(err, domain.ErrLocked):
		return "travada"
	case errors.As(err, &stepErr):
		return "falha_etapa"
	default:
		return "rejeitada"
	}
}
