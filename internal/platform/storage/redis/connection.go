package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient aceita "host:porta" ou uma URL redis:// / rediss://; na URL, senha e db vêm dela.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	opts, err := clientOptions(addr, password, db)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctxPing).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s falhou: %w", opts.Addr, err)
	}

	return client, nil
}

func clientOptions(addr, password string, db int) (*redis.Options, error) {
	var opts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("redis: url invalida: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr, Password: password, DB: db}
	}

	opts.PoolSize = 50
	opts.PoolTimeout = 5 * time.Second
	return opts, nil
}
