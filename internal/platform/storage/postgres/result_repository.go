package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/e-voting/internal/domain"
)

// ResultRepository mantém o snapshot publicado de cada eleição.
type ResultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

type resultModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	ElectionID  string    `gorm:"column:election_id"`
	CandidateID int64     `gorm:"column:candidate_id"`
	VoteCount   int64     `gorm:"column:vote_count"`
	ComputedAt  time.Time `gorm:"column:computed_at"`
}

func (resultModel) TableName() string {
	return "results"
}

func (m resultModel) toDomain() domain.Result {
	return domain.Result{
		ID:          domain.ResultID(m.ID),
		ElectionID:  domain.ElectionID(m.ElectionID),
		CandidateID: domain.CandidateID(m.CandidateID),
		VoteCount:   m.VoteCount,
		ComputedAt:  m.ComputedAt,
	}
}

// Replace apaga e regrava na mesma transação: leitores nunca veem um snapshot parcial.
func (r *ResultRepository) Replace(ctx context.Context, election domain.ElectionID, rows []domain.Result) error {
	models := make([]resultModel, len(rows))
	for i, row := range rows {
		if row.ElectionID != election {
			return fmt.Errorf("%w: resultado de outra eleicao (%s)", domain.ErrValidation, row.ElectionID)
		}
		models[i] = resultModel{
			ID:          string(row.ID),
			ElectionID:  string(row.ElectionID),
			CandidateID: int64(row.CandidateID),
			VoteCount:   row.VoteCount,
			ComputedAt:  row.ComputedAt,
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("election_id = ?", string(election)).Delete(&resultModel{}).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.CreateInBatches(&models, 100).Error
	})
	if err != nil {
		return fmt.Errorf("gorm resultados: substituir: %w", err)
	}
	return nil
}

func (r *ResultRepository) ListByElection(ctx context.Context, election domain.ElectionID) ([]domain.Result, error) {
	var models []resultModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", string(election)).
		Order("vote_count DESC, candidate_id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm resultados: listar: %w", err)
	}

	results := make([]domain.Result, len(models))
	for i, m := range models {
		results[i] = m.toDomain()
	}
	return results, nil
}

var _ domain.ResultRepository = (*ResultRepository)(nil)
