package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/e-voting/internal/domain"
)

// incrementarSeExiste evita recriar a chave a partir de zero depois de uma expiração ou flush.
var incrementarSeExiste = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("INCRBY", KEYS[1], ARGV[1])
end
return false
`)

// Contador mantém contagens derivadas do banco em chaves com prefixo e TTL.
type Contador struct {
	client *redis.Client
	prefix string
}

func NewContador(client *redis.Client, prefix string) *Contador {
	return &Contador{
		client: client,
		prefix: prefix,
	}
}

func (c *Contador) IncrementarSeExiste(ctx context.Context, chave string, delta int64) (int64, bool, error) {
	val, err := incrementarSeExiste.Run(ctx, c.client, []string{c.key(chave)}, delta).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis contador: incrementar %s: %w", chave, err)
	}
	return val, true, nil
}

func (c *Contador) Obter(ctx context.Context, chave string) (int64, bool, error) {
	val, err := c.client.Get(ctx, c.key(chave)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis contador: obter %s: %w", chave, err)
	}
	return val, true, nil
}

func (c *Contador) Semear(ctx context.Context, chave string, valor int64, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key(chave), valor, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis contador: semear %s: %w", chave, err)
	}
	return ok, nil
}

func (c *Contador) key(chave string) string {
	if c.prefix == "" {
		return chave
	}
	return fmt.Sprintf("%s:%s", c.prefix, chave)
}

var _ domain.Contador = (*Contador)(nil)
