// Pacote redis implementa fila de jobs, contadores e lock distribuído sobre Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/logger"
)

const bloqueioPadrao = 5 * time.Second

// Fila usa uma lista Redis (LPUSH/BRPOP) para os jobs de publicação assíncrona.
type Fila struct {
	client   *redis.Client
	key      string
	bloqueio time.Duration
}

func NewFila(client *redis.Client, key string) *Fila {
	return &Fila{
		client:   client,
		key:      key,
		bloqueio: bloqueioPadrao,
	}
}

// ComBloqueio ajusta quanto tempo cada BRPOP espera antes de reavaliar o contexto (mínimo de 1s no Redis).
func (f *Fila) ComBloqueio(d time.Duration) *Fila {
	if d > 0 {
		f.bloqueio = d
	}
	return f
}

func (f *Fila) PublicarJob(ctx context.Context, job domain.PublishJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("redis fila: falha serializando job: %w", err)
	}
	if err := f.client.LPush(ctx, f.key, payload).Err(); err != nil {
		return fmt.Errorf("redis fila: falha ao enfileirar job: %w", err)
	}
	return nil
}

func (f *Fila) ConsumirJobs(ctx context.Context, handler func(context.Context, domain.PublishJob) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := f.client.BRPop(ctx, f.bloqueio, f.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("redis fila: falha ao consumir job: %w", err)
		}

		if len(res) != 2 {
			continue
		}

		var job domain.PublishJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil || job.ElectionID == "" {
			// Payload ilegível não tem como ser reprocessado; descartamos para não travar a fila.
			logger.Warn("fila: job descartado", "payload", res[1], "err", err)
			continue
		}

		if err := handler(ctx, job); err != nil {
			return err
		}
	}
}

// Pendentes devolve quantos jobs aguardam consumo.
func (f *Fila) Pendentes(ctx context.Context) (int64, error) {
	n, err := f.client.LLen(ctx, f.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis fila: tamanho: %w", err)
	}
	return n, nil
}

var _ domain.Fila = (*Fila)(nil)
