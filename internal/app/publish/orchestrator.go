// Pacote publish orquestra o encerramento de uma eleição: fechar, apurar, publicar e arquivar.
// Não existe transação entre as etapas; a primeira falha interrompe a sequência e o estado
// já gravado permanece, pronto para ser retomado.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/logger"
	"github.com/marcelojr/e-voting/internal/platform/metrics"
)

const (
	defaultStepTimeout = 5 * time.Second
	defaultLockTTL     = time.Minute
	tracerName         = "github.com/marcelojr/e-voting/internal/app/publish"
)

type Registry interface {
	GetElection(ctx context.Context, id domain.ElectionID) (domain.Election, error)
	UpdateStatus(ctx context.Context, id domain.ElectionID, to domain.ElectionStatus) (domain.Election, error)
}

type Tallier interface {
	Tally(ctx context.Context, id domain.ElectionID) (domain.Tally, error)
}

type Publisher interface {
	PublishResults(ctx context.Context, id domain.ElectionID, counts domain.Tally) error
}

type Orchestrator struct {
	registry    Registry
	tallier     Tallier
	publisher   Publisher
	locker      domain.Locker
	lockTTL     time.Duration
	stepTimeout time.Duration
	group       singleflight.Group
	tracer      trace.Tracer
	log         *slog.Logger
}

type Option func(*Orchestrator)

// WithLocker adiciona exclusão mútua entre processos; sem ele vale apenas o singleflight local.
func WithLocker(l domain.Locker, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.locker = l
		if ttl > 0 {
			o.lockTTL = ttl
		}
	}
}

func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.stepTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

func NewOrchestrator(registry Registry, tallier Tallier, publisher Publisher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:    registry,
		tallier:     tallier,
		publisher:   publisher,
		lockTTL:     defaultLockTTL,
		stepTimeout: defaultStepTimeout,
		tracer:      otel.Tracer(tracerName),
		log:         logger.With("publish"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executa as quatro etapas. Eleição ARCHIVED devolve um relatório sem efeitos colaterais;
// DRAFT e PUBLISHED são rejeitadas com ErrInvalidState.
func (o *Orchestrator) Run(ctx context.Context, id domain.ElectionID) (Report, error) {
	return o.single(ctx, id, StepClose)
}

// Resume retoma a partir de tally, publish ou archive numa eleição já CLOSED.
func (o *Orchestrator) Resume(ctx context.Context, id domain.ElectionID, from Step) (Report, error) {
	if from < StepTally || from > StepArchive {
		return Report{}, fmt.Errorf("%w: retomada aceita apenas tally, publish ou archive (recebido %s)", domain.ErrValidation, from)
	}
	return o.single(ctx, id, from)
}

func (o *Orchestrator) single(ctx context.Context, id domain.ElectionID, from Step) (Report, error) {
	if id == "" {
		return Report{}, fmt.Errorf("%w: id da eleicao obrigatorio", domain.ErrValidation)
	}

	// A execução compartilhada não herda o cancelamento de quem chegou primeiro; os timeouts
	// por etapa continuam limitando a duração. Cada chamador desiste só pelo próprio contexto.
	key := fmt.Sprintf("%s:%s", id, from)
	ch := o.group.DoChan(key, func() (any, error) {
		return o.execute(context.WithoutCancel(ctx), id, from)
	})

	select {
	case res := <-ch:
		if res.Shared {
			o.log.Info("execucao compartilhada com chamada em voo", "eleicao", id, "etapa_inicial", from)
		}
		report, _ := res.Val.(Report)
		return report, res.Err
	case <-ctx.Done():
		o.log.Warn("chamador desistiu, execucao segue em segundo plano", "eleicao", id, "etapa_inicial", from)
		return Report{ElectionID: id}, ctx.Err()
	}
}

func (o *Orchestrator) execute(ctx context.Context, id domain.ElectionID, from Step) (Report, error) {
	report := Report{RunID: uuid.NewString(), ElectionID: id}

	ctx, span := o.tracer.Start(ctx, "publish.run", trace.WithAttributes(
		attribute.String("eleicao.id", string(id)),
		attribute.String("publish.run_id", report.RunID),
		attribute.String("publish.from", from.String()),
	))
	defer span.End()

	log := o.log.With("eleicao", id, "run_id", report.RunID)

	if o.locker != nil {
		release, err := o.locker.Acquire(ctx, string(id), o.lockTTL)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lock")
			return report, err
		}
		defer func() {
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := release(relCtx); err != nil {
				log.Warn("falha ao liberar lock", "err", err)
			}
		}()
	}

	e, err := o.guardRead(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "guard")
		return report, err
	}

	switch {
	case e.Status == domain.StatusArchived && (from == StepClose || from == StepArchive):
		report.AlreadyArchived = true
		report.FinalStatus = domain.StatusArchived
		log.Info("eleicao ja arquivada, nada a fazer")
		return report, nil
	case from == StepClose && (e.Status == domain.StatusOpen || e.Status == domain.StatusClosed):
	case from > StepClose && e.Status == domain.StatusClosed:
	default:
		err := fmt.Errorf("%w: publicacao a partir de %s nao permitida com status %s", domain.ErrInvalidState, from, e.Status)
		span.SetStatus(codes.Error, "guard")
		return report, err
	}

	log.Info("publicacao iniciada", "status_inicial", e.Status, "etapa_inicial", from)

	for step := from; step <= StepArchive; step++ {
		inicio := time.Now()
		err := o.runStep(ctx, step, id, &report)
		dur := time.Since(inicio)

		if err != nil {
			metrics.ObserveStep(step.String(), "falha", dur.Seconds())
			status := o.statusAfterFailure(ctx, id)
			log.Error("etapa falhou", "etapa", step, "status", status, "err", err)
			span.SetStatus(codes.Error, step.String())
			return report, &StepError{Step: step, ElectionID: id, Status: status, Err: err}
		}

		metrics.ObserveStep(step.String(), "sucesso", dur.Seconds())
		report.Steps = append(report.Steps, StepOutcome{Step: step, Duration: dur})
		log.Info("etapa concluida", "etapa", step, "duracao_ms", dur.Milliseconds())
	}

	log.Info("publicacao concluida", "status_final", report.FinalStatus, "total_votos", report.Tally.Total())
	return report, nil
}

// runStep executa uma etapa com timeout próprio. A chamada roda numa goroutine para que o
// limite valha mesmo se a dependência ignorar o contexto.
func (o *Orchestrator) runStep(ctx context.Context, step Step, id domain.ElectionID, report *Report) error {
	ctx, span := o.tracer.Start(ctx, "publish."+step.String(), trace.WithAttributes(
		attribute.String("eleicao.id", string(id)),
	))
	defer span.End()

	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	type outcome struct {
		tally  domain.Tally
		status domain.ElectionStatus
		err    error
	}
	done := make(chan outcome, 1)
	current := report.Tally

	go func() {
		var out outcome
		switch step {
		case StepClose:
			e, err := o.registry.UpdateStatus(stepCtx, id, domain.StatusClosed)
			out.status, out.err = e.Status, err
		case StepTally:
			out.tally, out.err = o.tallier.Tally(stepCtx, id)
		case StepPublish:
			counts := current
			if counts == nil {
				// Retomada direto em publish: reapura. Um voto que leu OPEN antes do fechamento
				// ainda pode ter sido gravado depois dele; a reapuração o inclui.
				var err error
				if counts, err = o.tallier.Tally(stepCtx, id); err != nil {
					out.err = err
					break
				}
				out.tally = counts
			}
			out.err = o.publisher.PublishResults(stepCtx, id, counts)
		case StepArchive:
			e, err := o.registry.UpdateStatus(stepCtx, id, domain.StatusArchived)
			out.status, out.err = e.Status, err
		default:
			out.err = fmt.Errorf("etapa desconhecida %s", step)
		}
		done <- out
	}()

	var out outcome
	select {
	case out = <-done:
	case <-stepCtx.Done():
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
			out.err = fmt.Errorf("etapa %s excedeu %s: %w", step, o.stepTimeout, stepCtx.Err())
		} else {
			out.err = fmt.Errorf("etapa %s cancelada: %w", step, stepCtx.Err())
		}
	}

	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.err.Error())
		return out.err
	}
	if out.tally != nil {
		report.Tally = out.tally
	}
	if out.status != "" {
		report.FinalStatus = out.status
	}
	if step == StepTally {
		span.SetAttributes(attribute.Int64("apuracao.total", out.tally.Total()))
	}
	return nil
}

func (o *Orchestrator) guardRead(ctx context.Context, id domain.ElectionID) (domain.Election, error) {
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()
	return o.registry.GetElection(ctx, id)
}

// statusAfterFailure relê o status para o relatório; devolve "" se nem isso for possível.
func (o *Orchestrator) statusAfterFailure(ctx context.Context, id domain.ElectionID) domain.ElectionStatus {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.stepTimeout)
	defer cancel()
	e, err := o.registry.GetElection(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			o.log.Warn("falha ao reler status apos erro", "eleicao", id, "err", err)
		}
		return ""
	}
	return e.Status
}
