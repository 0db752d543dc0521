package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/e-voting/internal/domain"
)

// liberarSeDono só apaga a chave quando o token confere, para não soltar o lock de outro processo.
var liberarSeDono = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implementa exclusão mútua por chave com SET NX PX.
type Locker struct {
	client *redis.Client
	prefix string
}

func NewLocker(client *redis.Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	full := l.key(key)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock: adquirir %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLocked, key)
	}

	release := func(ctx context.Context) error {
		if err := liberarSeDono.Run(ctx, l.client, []string{full}, token).Err(); err != nil {
			return fmt.Errorf("redis lock: liberar %s: %w", key, err)
		}
		return nil
	}
	return release, nil
}

func (l *Locker) key(key string) string {
	if l.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", l.prefix, key)
}

var _ domain.Locker = (*Locker)(nil)
