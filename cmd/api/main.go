// Executável principal da API: carrega a configuração, inicializa dependências e sobe o servidor HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelojr/e-voting/internal/app/httpapi"
	"github.com/marcelojr/e-voting/internal/app/wire"
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

	app, err := wire.Build(ctx, cfg)
	if err != nil {
		logger.Fatal("falha ao montar dependencias", "err", err)
	}
	defer app.Close()

	svc := httpapi.Services{
		Elections: app.Elections,
		Votes:     app.Boundary,
		Ledger:    app.Ledger,
		Results:   app.Results,
		Publish:   app.Orchestrator,
		Checker:   app.Checker,
	}
	// Interface com valor nil tipado não seria nil; só atribuímos a fila quando existe.
	if app.Fila != nil {
		svc.Queue = app.Fila
	}

	api := httpapi.New(svc, logger.L(), httpapi.WithJWTSecret(cfg.AuthJWTSecret))
	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api ouvindo", "addr", cfg.HTTPAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("erro no servidor", "err", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("encerramento forcado", "err", err)
	}
	logger.Info("api finalizada")
}
