// Pacote testutil reúne helpers compartilhados pelos testes de serviço.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/marcelojr/e-voting/internal/platform/migrations"
	"github.com/marcelojr/e-voting/internal/platform/storage/postgres"
)

// OpenSQLite abre um banco SQLite em arquivo temporário já migrado e fecha ao fim do teste.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := postgres.Open(context.Background(), postgres.DriverSQLite, filepath.Join(t.TempDir(), "evoting.db"))
	if err != nil {
		t.Fatalf("testutil: abrir sqlite: %v", err)
	}
	if err := migrations.Run(db); err != nil {
		t.Fatalf("testutil: migrar sqlite: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
