//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/ids"
	"github.com/marcelojr/e-voting/internal/platform/migrations"
)

// setupPostgresContainer sobe um Postgres real; o índice único e o código 23505 só são exercitados aqui.
func setupPostgresContainer(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("evoting"),
		tcpostgres.WithUsername("evoting"),
		tcpostgres.WithPassword("evoting"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("falha ao subir container postgres: %v", err)
	}
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, DriverPostgres, dsn)
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func TestIntegration_VoteRepository_QuandoVotosConcorrentes_DeveAceitarApenasUm(t *testing.T) {
	db := setupPostgresContainer(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()
	eleicao := domain.ElectionID(gen.New())
	agora := time.Now().UTC()

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		sucesso    int
		duplicados int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(c domain.CandidateID) {
			defer wg.Done()
			err := repo.Insert(ctx, novoVoto(gen, eleicao, 42, c, agora))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				sucesso++
			} else if errors.Is(err, domain.ErrDuplicateVote) {
				duplicados++
			}
		}(domain.CandidateID(i%2 + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, sucesso)
	assert.Equal(t, 31, duplicados)
}

func TestIntegration_ElectionRepository_QuandoFluxoCompleto_DeveRespeitarGuardas(t *testing.T) {
	db := setupPostgresContainer(t)
	eleicoes := NewElectionRepository(db)
	resultados := NewResultRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	eleicao := novaEleicao(gen, domain.StatusDraft, 1, 2)
	require.NoError(t, eleicoes.Create(ctx, eleicao))
	require.NoError(t, eleicoes.AddCandidate(ctx, eleicao.ID, 3, domain.StatusDraft, time.Now()))
	require.NoError(t, eleicoes.UpdateStatus(ctx, eleicao.ID, domain.StatusOpen, []domain.ElectionStatus{domain.StatusDraft}, time.Now()))

	err := eleicoes.AddCandidate(ctx, eleicao.ID, 4, domain.StatusDraft, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	rows := linhasResultado(gen, eleicao.ID, time.Now().UTC(), domain.Tally{1: 2, 3: 7})
	require.NoError(t, resultados.Replace(ctx, eleicao.ID, rows))
	require.NoError(t, resultados.Replace(ctx, eleicao.ID, rows))

	lista, err := resultados.ListByElection(ctx, eleicao.ID)
	require.NoError(t, err)
	require.Len(t, lista, 2)
	assert.Equal(t, domain.CandidateID(3), lista[0].CandidateID)
}
