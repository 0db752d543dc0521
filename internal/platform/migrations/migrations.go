// Pacote migrations centraliza as versões gormigrate aplicadas na inicialização.
package migrations

import (
	"fmt"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/marcelojr/e-voting/internal/domain"
)

func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: db nulo")
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, list())

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrations: falha ao aplicar: %w", err)
	}

	return nil
}

func list() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202601100001_init_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.Election{}, &domain.ElectionCandidate{}, &domain.Vote{}, &domain.Result{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("results", "votes", "election_candidates", "elections")
			},
		},
		{
			// O índice único (election_id, voter_id) é a única barreira contra voto duplo;
			// garantimos sua existência mesmo em bancos criados antes da tag uniqueIndex.
			ID: "202601100002_votes_unique_voter",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasIndex(&domain.Vote{}, "idx_votes_election_voter") {
					return nil
				}
				return tx.Migrator().CreateIndex(&domain.Vote{}, "idx_votes_election_voter")
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropIndex(&domain.Vote{}, "idx_votes_election_voter")
			},
		},
	}
}
