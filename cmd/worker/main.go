// Worker assíncrono que consome jobs de publicação da fila e expõe métricas.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcelojr/e-voting/internal/app/wire"
	"github.com/marcelojr/e-voting/internal/app/worker"
	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/config"
	"github.com/marcelojr/e-voting/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuracao invalida", "err", err)
	}
	logger.SetLevel(cfg.LogLevel)

	// Sem Redis não há fila para consumir.
	if !cfg.RedisEnabled {
		logger.Fatal("worker exige REDIS_ENABLED=true")
	}

	app, err := wire.Build(ctx, cfg)
	if err != nil {
		logger.Fatal("falha ao montar dependencias", "err", err)
	}
	defer app.Close()

	if cfg.WorkerMetricsAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/readyz", app.Checker.ReadyHandler())
			logger.Info("worker metrics ouvindo", "addr", cfg.WorkerMetricsAddress)
			if err := http.ListenAndServe(cfg.WorkerMetricsAddress, mux); err != nil {
				logger.Error("erro no servidor de metrics do worker", "err", err)
			}
		}()
	}

	processor := worker.NewPublishProcessor(app.Orchestrator)

	logger.Info("worker iniciado, aguardando jobs de publicacao", "fila", cfg.PublishQueueKey)
	err = app.Fila.ConsumirJobs(ctx, func(ctx context.Context, job domain.PublishJob) error {
		// O processor já registrou a falha; a fila segue para o próximo job.
		_ = processor.Process(ctx, job)
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatal("worker finalizado com erro", "err", err)
	}

	logger.Info("worker finalizado")
}
