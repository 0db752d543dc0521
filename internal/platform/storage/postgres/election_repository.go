package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcelojr/e-voting/internal/domain"
)

// ElectionRepository mapeia o agregado de eleição (eleição + conjunto de candidatos) para GORM.
type ElectionRepository struct {
	db *gorm.DB
}

func NewElectionRepository(db *gorm.DB) *ElectionRepository {
	return &ElectionRepository{db: db}
}

type electionModel struct {
	ID          string           `gorm:"column:id;primaryKey"`
	Title       string           `gorm:"column:title"`
	Description string           `gorm:"column:description"`
	StartAt     time.Time        `gorm:"column:start_at"`
	EndAt       time.Time        `gorm:"column:end_at"`
	Status      string           `gorm:"column:status"`
	CreatedAt   time.Time        `gorm:"column:created_at"`
	UpdatedAt   time.Time        `gorm:"column:updated_at"`
	Candidates  []candidateModel `gorm:"foreignKey:ElectionID;references:ID"`
}

func (electionModel) TableName() string {
	return "elections"
}

type candidateModel struct {
	ElectionID  string `gorm:"column:election_id;primaryKey"`
	CandidateID int64  `gorm:"column:candidate_id;primaryKey;autoIncrement:false"`
}

func (candidateModel) TableName() string {
	return "election_candidates"
}

func (m electionModel) toDomain() domain.Election {
	e := domain.Election{
		ID:          domain.ElectionID(m.ID),
		Title:       m.Title,
		Description: m.Description,
		StartAt:     m.StartAt,
		EndAt:       m.EndAt,
		Status:      domain.ElectionStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}

	e.CandidateIDs = make([]domain.CandidateID, len(m.Candidates))
	for i, c := range m.Candidates {
		e.CandidateIDs[i] = domain.CandidateID(c.CandidateID)
	}
	sort.Slice(e.CandidateIDs, func(i, j int) bool { return e.CandidateIDs[i] < e.CandidateIDs[j] })
	return e
}

func fromDomainElection(e domain.Election) electionModel {
	return electionModel{
		ID:          string(e.ID),
		Title:       e.Title,
		Description: e.Description,
		StartAt:     e.StartAt,
		EndAt:       e.EndAt,
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func candidateModels(id domain.ElectionID, candidates []domain.CandidateID) []candidateModel {
	seen := make(map[domain.CandidateID]struct{}, len(candidates))
	models := make([]candidateModel, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		models = append(models, candidateModel{ElectionID: string(id), CandidateID: int64(c)})
	}
	return models
}

func (r *ElectionRepository) Create(ctx context.Context, e domain.Election) error {
	model := fromDomainElection(e)
	candidates := candidateModels(e.ID, e.CandidateIDs)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&model).Error; err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		return tx.Create(&candidates).Error
	})
	if err != nil {
		return fmt.Errorf("gorm eleicao: inserir: %w", err)
	}
	return nil
}

func (r *ElectionRepository) FindByID(ctx context.Context, id domain.ElectionID) (domain.Election, error) {
	return findElection(ctx, r.db, id)
}

func findElection(ctx context.Context, db *gorm.DB, id domain.ElectionID) (domain.Election, error) {
	var model electionModel
	if err := db.WithContext(ctx).
		Preload("Candidates").
		First(&model, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Election{}, domain.ErrNotFound
		}
		return domain.Election{}, fmt.Errorf("gorm eleicao: buscar id: %w", err)
	}
	return model.toDomain(), nil
}

func (r *ElectionRepository) List(ctx context.Context) ([]domain.Election, error) {
	var models []electionModel
	if err := r.db.WithContext(ctx).
		Preload("Candidates").
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm eleicao: listar: %w", err)
	}
	return toDomainElections(models), nil
}

func (r *ElectionRepository) ListByStatus(ctx context.Context, status domain.ElectionStatus) ([]domain.Election, error) {
	var models []electionModel
	if err := r.db.WithContext(ctx).
		Preload("Candidates").
		Where("status = ?", string(status)).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm eleicao: listar por status: %w", err)
	}
	return toDomainElections(models), nil
}

func (r *ElectionRepository) UpdateStatus(ctx context.Context, id domain.ElectionID, to domain.ElectionStatus, from []domain.ElectionStatus, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&electionModel{}).Where("id = ?", string(id))
		if len(from) > 0 {
			q = q.Where("status IN ?", statusStrings(from))
		}
		res := q.Updates(map[string]any{"status": string(to), "updated_at": at})
		if res.Error != nil {
			return fmt.Errorf("gorm eleicao: atualizar status: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return nil
		}
		return guardFailure(ctx, tx, id, fmt.Sprintf("transicao para %s nao permitida", to))
	})
}

func (r *ElectionRepository) AddCandidate(ctx context.Context, id domain.ElectionID, candidate domain.CandidateID, onlyIn domain.ElectionStatus, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// O UPDATE condicional trava a linha e serializa com mudanças de status concorrentes.
		res := tx.Model(&electionModel{}).
			Where("id = ? AND status = ?", string(id), string(onlyIn)).
			Update("updated_at", at)
		if res.Error != nil {
			return fmt.Errorf("gorm eleicao: adicionar candidato: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return guardFailure(ctx, tx, id, "candidatos so podem ser adicionados em "+string(onlyIn))
		}

		row := candidateModel{ElectionID: string(id), CandidateID: int64(candidate)}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("gorm eleicao: inserir candidato: %w", err)
		}
		return nil
	})
}

func (r *ElectionRepository) Delete(ctx context.Context, id domain.ElectionID, onlyIn domain.ElectionStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND status = ?", string(id), string(onlyIn)).Delete(&electionModel{})
		if res.Error != nil {
			return fmt.Errorf("gorm eleicao: remover: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return guardFailure(ctx, tx, id, "apenas eleicoes em "+string(onlyIn)+" podem ser removidas")
		}
		if err := tx.Where("election_id = ?", string(id)).Delete(&candidateModel{}).Error; err != nil {
			return fmt.Errorf("gorm eleicao: remover candidatos: %w", err)
		}
		return nil
	})
}

// guardFailure distingue "não existe" de "existe mas no status errado" após um UPDATE/DELETE condicional.
func guardFailure(ctx context.Context, tx *gorm.DB, id domain.ElectionID, reason string) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&electionModel{}).Where("id = ?", string(id)).Count(&count).Error; err != nil {
		return fmt.Errorf("gorm eleicao: verificar existencia: %w", err)
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidState, reason)
}

func toDomainElections(models []electionModel) []domain.Election {
	result := make([]domain.Election, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}
	return result
}

func statusStrings(statuses []domain.ElectionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var _ domain.ElectionRepository = (*ElectionRepository)(nil)
