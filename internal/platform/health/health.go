// Pacote health expõe liveness e readiness para API e worker.
package health

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type Checker struct {
	db      *sql.DB
	redis   *redis.Client
	timeout time.Duration
}

func NewChecker(db *sql.DB, redis *redis.Client) *Checker {
	return &Checker{db: db, redis: redis, timeout: 2 * time.Second}
}

// Check pinga banco e Redis em paralelo; o primeiro erro cancela o outro ping.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if c.db != nil {
		g.Go(func() error {
			if err := c.db.PingContext(gctx); err != nil {
				return fmt.Errorf("database unavailable: %w", err)
			}
			return nil
		})
	}
	if c.redis != nil {
		g.Go(func() error {
			if err := c.redis.Ping(gctx).Err(); err != nil {
				return fmt.Errorf("redis unavailable: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Check(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// LiveHandler só indica que o processo responde; não toca dependências.
func LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
