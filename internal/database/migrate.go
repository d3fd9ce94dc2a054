// internal/database/migrate.go
//
// Idempotent schema bootstrap.
//
// Every component that owns tables returns its DDL from Migrations().  The
// statements must be safe to re-run (CREATE TABLE IF NOT EXISTS and the
// like) because they execute on every boot.  There is no version table.

package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Migrator is implemented by anything that owns schema.
type Migrator interface {
	Name() string
	Migrations() []string
}

// Migrate runs each source's statements in order and stops at the first
// failure.
func Migrate(ctx context.Context, db *sqlx.DB, sources ...Migrator) error {
	for _, src := range sources {
		for i, stmt := range src.Migrations() {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate %s #%d: %w", src.Name(), i+1, err)
			}
		}
		zap.S().Infow("migrations applied", "component", src.Name(), "count", len(src.Migrations()))
	}
	return nil
}
