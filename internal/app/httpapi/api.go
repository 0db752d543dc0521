// Pacote httpapi expõe os handlers REST e traduz requisições HTTP para os serviços de eleição.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcelojr/e-voting/internal/app/elections"
	"github.com/marcelojr/e-voting/internal/app/publish"
	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/health"
)

type ElectionService interface {
	CreateElection(ctx context.Context, in elections.NewElection) (domain.Election, error)
	GetElection(ctx context.Context, id domain.ElectionID) (domain.Election, error)
	ListElections(ctx context.Context) ([]domain.Election, error)
	GetPublicElections(ctx context.Context) ([]domain.Election, error)
	AddCandidate(ctx context.Context, id domain.ElectionID, candidate domain.CandidateID) (domain.Election, error)
	UpdateStatus(ctx context.Context, id domain.ElectionID, to domain.ElectionStatus) (domain.Election, error)
	DeleteElection(ctx context.Context, id domain.ElectionID) error
}

// VoteService é a fronteira de votação: valida a eleição antes de gravar no livro de votos.
type VoteService interface {
	Cast(ctx context.Context, voter domain.VoterID, election domain.ElectionID, candidate domain.CandidateID) (domain.Vote, error)
}

type LedgerService interface {
	GetVotesByVoter(ctx context.Context, voter domain.VoterID) ([]domain.Vote, error)
	Tally(ctx context.Context, election domain.ElectionID) (domain.Tally, error)
	Turnout(ctx context.Context, election domain.ElectionID) (int64, error)
}

type ResultService interface {
	PublishResults(ctx context.Context, election domain.ElectionID, counts domain.Tally) error
	GetResults(ctx context.Context, election domain.ElectionID) ([]domain.Result, error)
}

type PublishService interface {
	Run(ctx context.Context, id domain.ElectionID) (publish.Report, error)
	Resume(ctx context.Context, id domain.ElectionID, from publish.Step) (publish.Report, error)
}

// JobQueue recebe publicações assíncronas; sem fila, ?async=true é recusado.
type JobQueue interface {
	PublicarJob(ctx context.Context, job domain.PublishJob) error
}

// Services agrupa as dependências; Queue e Checker são opcionais.
type Services struct {
	Elections ElectionService
	Votes     VoteService
	Ledger    LedgerService
	Results   ResultService
	Publish   PublishService
	Queue     JobQueue
	Checker   *health.Checker
}

type API struct {
	svc       Services
	logger    *slog.Logger
	jwtSecret []byte
	now       func() time.Time
}

type Option func(*API)

// WithJWTSecret habilita Authorization: Bearer (HS256, sub = id do eleitor) além de X-User-Id.
func WithJWTSecret(secret string) Option {
	return func(a *API) {
		if secret != "" {
			a.jwtSecret = []byte(secret)
		}
	}
}

func New(svc Services, logger *slog.Logger, opts ...Option) *API {
	a := &API{svc: svc, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router monta todas as rotas, incluindo health e métricas.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(a.requestID)
	r.Use(a.recoverer)

	r.Get("/healthz", health.LiveHandler())
	if a.svc.Checker != nil {
		r.Get("/readyz", a.svc.Checker.ReadyHandler())
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/elections", func(r chi.Router) {
		r.Post("/", a.criarEleicao)
		r.Get("/", a.listarEleicoes)
		r.Get("/public", a.listarPublicas)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.obterEleicao)
			r.Delete("/", a.removerEleicao)
			r.Post("/candidates/{candidateId}", a.adicionarCandidato)
			r.Put("/status", a.atualizarStatus)
			r.Put("/open", a.atalhoStatus(domain.StatusOpen))
			r.Put("/close", a.atalhoStatus(domain.StatusClosed))
			r.Get("/tally", a.apuracao)
			r.Get("/turnout", a.comparecimento)
			r.Post("/results", a.publicarResultados)
			r.Get("/results", a.obterResultados)
		})
	})

	r.Route("/votes", func(r chi.Router) {
		r.Post("/", a.registrarVoto)
		r.Get("/mine", a.meusVotos)
	})

	r.Route("/admin/elections/{id}/publish", func(r chi.Router) {
		r.Post("/", a.publicar)
		r.Post("/resume", a.retomar)
	})

	return r
}
