package wire

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/e-voting/internal/app/elections"
	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/config"
)

func configSQLite(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DBDriver:            "sqlite",
		SQLitePath:          filepath.Join(t.TempDir(), "evoting.db"),
		AutoMigrate:         true,
		StrictTransitions:   true,
		StepTimeout:         2 * time.Second,
		LockTTL:             time.Minute,
		PublishQueueKey:     "fila:publicacoes",
		ContadorKeyPrefix:   "contador",
		LockKeyPrefix:       "lock:publicacao",
		RateLimitKeyPrefix:  "ratelimit",
		RateLimitMaxActions: 10,
	}
}

func TestBuild_QuandoRedisDesligado_DeveMontarServicosSemFila(t *testing.T) {
	cfg := configSQLite(t)
	ctx := context.Background()

	// Act
	c, err := Build(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	// Assert
	assert.Nil(t, c.Redis)
	assert.Nil(t, c.Fila)
	assert.NoError(t, c.Checker.Check(ctx))

	e, err := c.Elections.CreateElection(ctx, elections.NewElection{Title: "Grêmio", CandidateIDs: []domain.CandidateID{1, 2}})
	require.NoError(t, err)
	_, err = c.Elections.UpdateStatus(ctx, e.ID, domain.StatusOpen)
	require.NoError(t, err)

	_, err = c.Boundary.Cast(ctx, 7, e.ID, 2)
	require.NoError(t, err)

	report, err := c.Orchestrator.Run(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, report.FinalStatus)

	rows, err := c.Results.GetResults(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].VoteCount)
}

func TestBuild_QuandoRedisLigado_DeveUsarContadorELock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := configSQLite(t)
	cfg.RedisEnabled = true
	cfg.RedisAddr = mr.Addr()
	cfg.RateLimitEnabled = true
	cfg.RateLimitWindowSeconds = 60
	ctx := context.Background()

	c, err := Build(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.NotNil(t, c.Fila)
	assert.NoError(t, c.Checker.Check(ctx))

	e, err := c.Elections.CreateElection(ctx, elections.NewElection{Title: "Grêmio", CandidateIDs: []domain.CandidateID{1}})
	require.NoError(t, err)
	_, err = c.Elections.UpdateStatus(ctx, e.ID, domain.StatusOpen)
	require.NoError(t, err)
	_, err = c.Boundary.Cast(ctx, 7, e.ID, 1)
	require.NoError(t, err)

	// Act
	total, err := c.Ledger.Turnout(ctx, e.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.True(t, mr.Exists("contador:eleicao:"+string(e.ID)+":comparecimento"))
}

func TestBuild_QuandoRedisInacessivel_DeveFalhar(t *testing.T) {
	cfg := configSQLite(t)
	cfg.RedisEnabled = true
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := Build(context.Background(), cfg)

	assert.Error(t, err)
}
