package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/e-voting/internal/domain"
	"github.com/marcelojr/e-voting/internal/platform/ids"
)

func linhasResultado(gen *ids.Generator, eleicao domain.ElectionID, em time.Time, tally domain.Tally) []domain.Result {
	rows := make([]domain.Result, 0, len(tally))
	for _, c := range tally.Candidates() {
		rows = append(rows, domain.Result{
			ID:          domain.ResultID(gen.New()),
			ElectionID:  eleicao,
			CandidateID: c,
			VoteCount:   tally[c],
			ComputedAt:  em,
		})
	}
	return rows
}

func TestResultRepository_Replace_QuandoPublicadoDuasVezes_DeveManterApenasUltimoSnapshot(t *testing.T) {
	db := setupDB(t)
	repo := NewResultRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()
	eleicao := domain.ElectionID(gen.New())
	agora := time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)

	// Arrange
	require.NoError(t, repo.Replace(ctx, eleicao, linhasResultado(gen, eleicao, agora, domain.Tally{1: 3, 2: 5})))

	// Act: republicar com a mesma apuração não pode duplicar linhas
	err := repo.Replace(ctx, eleicao, linhasResultado(gen, eleicao, agora.Add(time.Minute), domain.Tally{1: 3, 2: 5}))

	// Assert
	require.NoError(t, err)
	resultados, err := repo.ListByElection(ctx, eleicao)
	require.NoError(t, err)
	require.Len(t, resultados, 2)
	assert.Equal(t, domain.CandidateID(2), resultados[0].CandidateID)
	assert.Equal(t, int64(5), resultados[0].VoteCount)
	assert.Equal(t, domain.CandidateID(1), resultados[1].CandidateID)
	assert.True(t, resultados[0].ComputedAt.Equal(agora.Add(time.Minute)))
}

func TestResultRepository_Replace_QuandoListaVazia_DeveLimparResultados(t *testing.T) {
	db := setupDB(t)
	repo := NewResultRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()
	eleicao := domain.ElectionID(gen.New())

	require.NoError(t, repo.Replace(ctx, eleicao, linhasResultado(gen, eleicao, time.Now().UTC(), domain.Tally{1: 1})))

	// Act
	err := repo.Replace(ctx, eleicao, nil)

	// Assert
	require.NoError(t, err)
	resultados, err := repo.ListByElection(ctx, eleicao)
	require.NoError(t, err)
	assert.Empty(t, resultados)
}

func TestResultRepository_Replace_QuandoLinhaDeOutraEleicao_DeveRetornarValidation(t *testing.T) {
	db := setupDB(t)
	repo := NewResultRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()
	eleicao := domain.ElectionID(gen.New())
	outra := domain.ElectionID(gen.New())

	err := repo.Replace(ctx, eleicao, linhasResultado(gen, outra, time.Now().UTC(), domain.Tally{1: 1}))

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestResultRepository_ListByElection_QuandoEmpate_DeveOrdenarPorCandidato(t *testing.T) {
	db := setupDB(t)
	repo := NewResultRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()
	eleicao := domain.ElectionID(gen.New())
	outra := domain.ElectionID(gen.New())
	agora := time.Now().UTC()

	// Arrange
	require.NoError(t, repo.Replace(ctx, eleicao, linhasResultado(gen, eleicao, agora, domain.Tally{30: 4, 10: 4, 20: 9})))
	require.NoError(t, repo.Replace(ctx, outra, linhasResultado(gen, outra, agora, domain.Tally{10: 1})))

	// Act
	resultados, err := repo.ListByElection(ctx, eleicao)

	// Assert
	require.NoError(t, err)
	require.Len(t, resultados, 3)
	ordem := []domain.CandidateID{resultados[0].CandidateID, resultados[1].CandidateID, resultados[2].CandidateID}
	assert.Equal(t, []domain.CandidateID{20, 10, 30}, ordem)
}
