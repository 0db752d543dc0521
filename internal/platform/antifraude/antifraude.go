// Pacote antifraude limita tentativas de voto por eleitor e eleição.
package antifraude

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/e-voting/internal/domain"
)

var ErrRateLimitExceeded = errors.New("limite de tentativas de voto atingido")

// LimitError carrega quanto falta para a janela reabrir.
type LimitError struct {
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%v (tente em %s)", ErrRateLimitExceeded, e.RetryAfter.Round(time.Second))
}

func (e *LimitError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}

// Noop aceita tudo; usado quando o limite está desligado ou sem Redis.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Validar(context.Context, domain.VoteAttempt) error {
	return nil
}

// RedisRateLimiter conta tentativas em janela fixa. A janela começa na primeira tentativa.
type RedisRateLimiter struct {
	client    *redis.Client
	limit     int64
	window    time.Duration
	keyPrefix string
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{
		client:    client,
		limit:     int64(limit),
		window:    window,
		keyPrefix: prefix,
	}
}

func (r *RedisRateLimiter) Validar(ctx context.Context, tentativa domain.VoteAttempt) error {
	if r.client == nil || r.limit <= 0 || r.window <= 0 {
		return nil
	}

	key := r.key(tentativa)

	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("antifraude: contar tentativa: %w", err)
	}

	// TTL negativo cobre tanto a primeira tentativa quanto uma chave que ficou sem expiração.
	restante := pttl.Val()
	if restante < 0 {
		if err := r.client.PExpire(ctx, key, r.window).Err(); err != nil {
			return fmt.Errorf("antifraude: definir janela: %w", err)
		}
		restante = r.window
	}

	if incr.Val() > r.limit {
		return &LimitError{RetryAfter: restante}
	}
	return nil
}

func (r *RedisRateLimiter) key(tentativa domain.VoteAttempt) string {
	return fmt.Sprintf("%s:%s:%d", r.keyPrefix, tentativa.ElectionID, tentativa.VoterID)
}

var (
	_ domain.Antifraude = Noop{}
	_ domain.Antifraude = (*RedisRateLimiter)(nil)
)
