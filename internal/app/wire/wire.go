// Pacote wire monta as dependências compartilhadas por API, worker e CLI.
package wire

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/marcelojr/e-voting/internal/app/elections"
	"github.com/marcelojr/e-voting/internal/app/publish"
	"github.com/marcelojr/e-voting/internal/app/results"
	"github.com/marcelojr/e-voting/internal/app/voting"
	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/antifraude"
	"github.com/marcelojr/e-voting/internal/platform/clock"
	"github.com/marcelojr/e-voting/internal/platform/config"
	"github.com/marcelojr/e-voting/internal/platform/health"
	"github.com/marcelojr/e-voting/internal/platform/ids"
	"github.com/marcelojr/e-voting/internal/platform/logger"
	"github.com/marcelojr/e-voting/internal/platform/migrations"
	postgresstorage "github.com/marcelojr/e-voting/internal/platform/storage/postgres"
	redisstorage "github.com/marcelojr/e-voting/internal/platform/storage/redis"
)

// Container agrupa conexões e serviços. Campos ligados ao Redis ficam nil quando ele está desligado.
type Container struct {
	DB    *gorm.DB
	SQL   *sql.DB
	Redis *redis.Client

	Elections    *elections.Service
	Ledger       *voting.Ledger
	Boundary     *voting.Boundary
	Results      *results.Store
	Orchestrator *publish.Orchestrator
	Fila         *redisstorage.Fila
	Checker      *health.Checker
}

// Build abre banco e Redis conforme cfg e liga os serviços. Close libera o que foi aberto.
func Build(ctx context.Context, cfg config.Config) (*Container, error) {
	db, err := postgresstorage.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("wire: banco: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("wire: sql.DB: %w", err)
	}

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("wire: migracao: %w", err)
		}
	}

	c := &Container{DB: db, SQL: sqlDB}
	if cfg.RedisEnabled {
		client, err := redisstorage.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("wire: redis: %w", err)
		}
		c.Redis = client
	}

	c.assemble(cfg, clock.NewSystemClock(), ids.DefaultGenerator())
	return c, nil
}

func (c *Container) assemble(cfg config.Config, clk domain.Clock, gen *ids.Generator) {
	var (
		contador domain.Contador
		af       domain.Antifraude = antifraude.NewNoop()
		orchOpts                   = []publish.Option{publish.WithStepTimeout(cfg.StepTimeout)}
	)
	if c.Redis != nil {
		contador = redisstorage.NewContador(c.Redis, cfg.ContadorKeyPrefix)
		if cfg.RateLimitEnabled {
			af = antifraude.NewRedisRateLimiter(c.Redis, cfg.RateLimitMaxActions, time.Duration(cfg.RateLimitWindowSeconds)*time.Second, cfg.RateLimitKeyPrefix)
		}
		orchOpts = append(orchOpts, publish.WithLocker(redisstorage.NewLocker(c.Redis, cfg.LockKeyPrefix), cfg.LockTTL))
		c.Fila = redisstorage.NewFila(c.Redis, cfg.PublishQueueKey)
	} else {
		logger.Warn("redis desligado: sem cache de comparecimento, limite de votos, lock distribuido nem fila")
	}

	c.Elections = elections.NewService(postgresstorage.NewElectionRepository(c.DB), clk, gen,
		elections.WithStrictTransitions(cfg.StrictTransitions))
	c.Ledger = voting.NewLedger(postgresstorage.NewVoteRepository(c.DB), contador, clk, gen)
	c.Boundary = voting.NewBoundary(c.Elections, c.Ledger, af)
	c.Results = results.NewStore(postgresstorage.NewResultRepository(c.DB), clk, gen)
	c.Orchestrator = publish.NewOrchestrator(c.Elections, c.Ledger, c.Results, orchOpts...)
	c.Checker = health.NewChecker(c.SQL, c.Redis)
}

func (c *Container) Close() error {
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.SQL != nil {
		errs = append(errs, c.SQL.Close())
	}
	return errors.Join(errs...)
}
