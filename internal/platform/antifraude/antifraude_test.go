package antifraude

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/e-voting/internal/domain"
)

func setupLimiter(t *testing.T, limit int, window time.Duration) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRateLimiter(client, limit, window, "rl"), mr
}

func TestRedisRateLimiter_Validar_QuandoExcedeLimite_DeveBloquearComRetryAfter(t *testing.T) {
	limiter, mr := setupLimiter(t, 2, time.Minute)
	ctx := context.Background()
	tentativa := domain.VoteAttempt{ElectionID: "eleicao-1", VoterID: 7}

	// Act
	require.NoError(t, limiter.Validar(ctx, tentativa))
	require.NoError(t, limiter.Validar(ctx, tentativa))
	err := limiter.Validar(ctx, tentativa)

	// Assert
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	var limitErr *LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Greater(t, limitErr.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, limitErr.RetryAfter, time.Minute)
	assert.Greater(t, mr.TTL("rl:eleicao-1:7"), time.Duration(0))
}

func TestRedisRateLimiter_Validar_QuandoOutroEleitorOuEleicao_NaoDeveAfetar(t *testing.T) {
	limiter, _ := setupLimiter(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.Validar(ctx, domain.VoteAttempt{ElectionID: "e1", VoterID: 1}))

	assert.NoError(t, limiter.Validar(ctx, domain.VoteAttempt{ElectionID: "e1", VoterID: 2}))
	assert.NoError(t, limiter.Validar(ctx, domain.VoteAttempt{ElectionID: "e2", VoterID: 1}))
}

func TestRedisRateLimiter_Validar_QuandoJanelaExpira_DeveLiberar(t *testing.T) {
	window := 30 * time.Second
	limiter, mr := setupLimiter(t, 1, window)
	ctx := context.Background()
	tentativa := domain.VoteAttempt{ElectionID: "eleicao-2", VoterID: 9}

	require.NoError(t, limiter.Validar(ctx, tentativa))
	require.ErrorIs(t, limiter.Validar(ctx, tentativa), ErrRateLimitExceeded)

	// Act
	mr.FastForward(window + time.Second)

	// Assert
	assert.NoError(t, limiter.Validar(ctx, tentativa))
}

func TestRedisRateLimiter_Validar_QuandoChaveSemExpiracao_DeveRecolocarJanela(t *testing.T) {
	limiter, mr := setupLimiter(t, 5, time.Minute)
	ctx := context.Background()

	// Arrange: contador órfão, como se o processo tivesse caído entre INCR e EXPIRE
	require.NoError(t, mr.Set("rl:e1:3", "2"))

	// Act
	err := limiter.Validar(ctx, domain.VoteAttempt{ElectionID: "e1", VoterID: 3})

	// Assert
	require.NoError(t, err)
	assert.Greater(t, mr.TTL("rl:e1:3"), time.Duration(0))
}

func TestRedisRateLimiter_Validar_QuandoMalConfigurado_DeveSerPermissivo(t *testing.T) {
	limiter := NewRedisRateLimiter(nil, 0, 0, "")

	assert.NoError(t, limiter.Validar(context.Background(), domain.VoteAttempt{ElectionID: "e", VoterID: 1}))
	assert.NoError(t, NewNoop().Validar(context.Background(), domain.VoteAttempt{}))
}

func TestRedisRateLimiter_Validar_QuandoRedisIndisponivel_DeveRetornarErroDeInfra(t *testing.T) {
	limiter, mr := setupLimiter(t, 1, time.Minute)
	mr.Close()

	err := limiter.Validar(context.Background(), domain.VoteAttempt{ElectionID: "e", VoterID: 1})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimitExceeded)
}
