package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/ids"
	"github.com/marcelojr/e-voting/internal/platform/migrations"
)

// setupDB sobe um SQLite em arquivo temporário com o mesmo schema de produção.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "evoting.db"))
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return db
}

func novaEleicao(gen *ids.Generator, status domain.ElectionStatus, candidatos ...domain.CandidateID) domain.Election {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return domain.Election{
		ID:           domain.ElectionID(gen.New()),
		Title:        "Conselho 2026",
		Description:  "Eleição do conselho",
		StartAt:      now,
		EndAt:        now.Add(48 * time.Hour),
		Status:       status,
		CandidateIDs: candidatos,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestElectionRepository_FindByID_QuandoExiste_DeveRetornarEleicaoComCandidatos(t *testing.T) {
	db := setupDB(t)
	repo := NewElectionRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	// Arrange
	eleicao := novaEleicao(gen, domain.StatusDraft, 30, 10, 20, 10)
	require.NoError(t, repo.Create(ctx, eleicao))

	// Act
	encontrada, err := repo.FindByID(ctx, eleicao.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, eleicao.ID, encontrada.ID)
	assert.Equal(t, "Conselho 2026", encontrada.Title)
	assert.Equal(t, domain.StatusDraft, encontrada.Status)
	assert.Equal(t, []domain.CandidateID{10, 20, 30}, encontrada.CandidateIDs)
}

func TestElectionRepository_FindByID_QuandoNaoExiste_DeveRetornarErroNotFound(t *testing.T) {
	db := setupDB(t)
	repo := NewElectionRepository(db)

	// Act
	resultado, err := repo.FindByID(context.Background(), domain.ElectionID(ids.NewGenerator().New()))

	// Assert
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.Election{}, resultado)
}

func TestElectionRepository_ListByStatus_QuandoHaVariosStatus_DeveFiltrar(t *testing.T) {
	db := setupDB(t)
	repo := NewElectionRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	// Arrange
	publicada := novaEleicao(gen, domain.StatusPublished, 1)
	require.NoError(t, repo.Create(ctx, publicada))
	require.NoError(t, repo.Create(ctx, novaEleicao(gen, domain.StatusDraft)))
	require.NoError(t, repo.Create(ctx, novaEleicao(gen, domain.StatusOpen)))

	// Act
	lista, err := repo.ListByStatus(ctx, domain.StatusPublished)
	todas, errTodas := repo.List(ctx)

	// Assert
	require.NoError(t, err)
	require.NoError(t, errTodas)
	require.Len(t, lista, 1)
	assert.Equal(t, publicada.ID, lista[0].ID)
	assert.Equal(t, []domain.CandidateID{1}, lista[0].CandidateIDs)
	assert.Len(t, todas, 3)
}

func TestElectionRepository_UpdateStatus_QuandoStatusAtualPermitido_DeveGravar(t *testing.T) {
	db := setupDB(t)
	repo := NewElectionRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	eleicao := novaEleicao(gen, domain.StatusOpen)
	require.NoError(t, repo.Create(ctx, eleicao))
	depois := eleicao.UpdatedAt.Add(time.Hour)

	// Act
	err := repo.UpdateStatus(ctx, eleicao.ID, domain.StatusClosed, []domain.ElectionStatus{domain.StatusOpen}, depois)

	// Assert
	require.NoError(t, err)
	atual, err := repo.FindByID(ctx, eleicao.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, atual.Status)
	assert.True(t, atual.UpdatedAt.Equal(depois))
}

func TestElectionRepository_UpdateStatus_QuandoStatusAtualNaoPermitido_DeveRetornarInvalidState(t *testing.T) {
	db := setupDB(t)
	repo := NewElectionRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	eleicao := novaEleicao(gen, domain.StatusDraft)
	require.NoError(t, repo.Create(ctx, eleicao))

	// Act
	err := repo.UpdateStatus(ctx, eleicao.ID, domain.StatusArchived, []domain.ElectionStatus{domain.StatusClosed}, time.Now())

	// Assert
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	atual, _ := repo.FindByID(ctx, eleicao.ID)
	assert.Equal(t, domain.StatusDraft, atual.Status)
}

func TestElectionRepository_UpdateStatus_QuandoSemRestricao_DeveGravarQualquerTransicao(t *testing.T) {
	db := setupDB(t)
	repo := NewElectionRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	eleicao := novaEleicao(gen, domain.StatusArchived)
	require.NoError(t, repo.Create(ctx, eleicao))

	// Act
	err := repo.UpdateStatus(ctx, eleicao.ID, domain.StatusOpen, nil, time.Now())

	// Assert
	require.NoError(t, err)
	atual, _ := repo.FindByID(ctx, eleicao.ID)
	assert.Equal(t, domain.StatusOpen, atual.Status)
}

func TestElectionRepository_UpdateStatus_QuandoNaoExiste_DeveRetornarNotFound(t *testing.T) {
	db := setupDB(t)
	repo := NewElectionRepository(db)

	err := repo.UpdateStatus(context.Background(), domain.ElectionID(ids.NewGenerator().New()), domain.StatusOpen, nil, time.Now())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestElectionRepository_AddCandidate_QuandoDraft_DeveAdicionarSemDuplicar(t *testing.T) {
	db := setupDB(t)
	repo := NewElectionRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	eleicao := novaEleicao(gen, domain.StatusDraft, 10)
	require.NoError(t, repo.Create(ctx, eleicao))

	// Act
	require.NoError(t, repo.AddCandidate(ctx, eleicao.ID, 20, domain.StatusDraft, time.Now()))
	require.NoError(t, repo.AddCandidate(ctx, eleicao.ID, 20, domain.StatusDraft, time.Now()))

	// Assert
	atual, err := repo.FindByID(ctx, eleicao.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.CandidateID{10, 20}, atual.CandidateIDs)
}

func TestElectionRepository_AddCandidate_QuandoForaDeDraft_DeveRetornarInvalidState(t *testing.T) {
	db := setupDB(t)
	repo := NewElectionRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	eleicao := novaEleicao(gen, domain.StatusOpen, 10)
	require.NoError(t, repo.Create(ctx, eleicao))

	// Act
	err := repo.AddCandidate(ctx, eleicao.ID, 20, domain.StatusDraft, time.Now())

	// Assert
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	atual, _ := repo.FindByID(ctx, eleicao.ID)
	assert.Equal(t, []domain.CandidateID{10}, atual.CandidateIDs)
}

func TestElectionRepository_Delete_QuandoDraft_DeveRemoverEleicaoECandidatos(t *testing.T) {
	db := setupDB(t)
	repo := NewElectionRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	eleicao := novaEleicao(gen, domain.StatusDraft, 1, 2)
	require.NoError(t, repo.Create(ctx, eleicao))

	// Act
	err := repo.Delete(ctx, eleicao.ID, domain.StatusDraft)

	// Assert
	require.NoError(t, err)
	_, err = repo.FindByID(ctx, eleicao.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var restantes int64
	require.NoError(t, db.Model(&candidateModel{}).Where("election_id = ?", string(eleicao.ID)).Count(&restantes).Error)
	assert.Zero(t, restantes)
}

func TestElectionRepository_Delete_QuandoForaDeDraft_DeveRetornarInvalidState(t *testing.T) {
	db := setupDB(t)
	repo := NewElectionRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	eleicao := novaEleicao(gen, domain.StatusPublished)
	require.NoError(t, repo.Create(ctx, eleicao))

	// Act
	err := repo.Delete(ctx, eleicao.ID, domain.StatusDraft)

	// Assert
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = repo.FindByID(ctx, eleicao.ID)
	assert.NoError(t, err)
}

func TestElectionRepository_Delete_QuandoNaoExiste_DeveRetornarNotFound(t *testing.T) {
	db := setupDB(t)
	repo := NewElectionRepository(db)

	err := repo.Delete(context.Background(), domain.ElectionID(ids.NewGenerator().New()), domain.StatusDraft)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
