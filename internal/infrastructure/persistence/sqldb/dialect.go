package sqldb

import (
	"context"
	"database/sql"

	"github.com/jsattler/depot-tracker/internal/domain"
)

// Dialect isolates the database-specific corners: schema migration, upsert
// syntax, placeholder style and unique-violation detection. The store itself
// is written once against $n placeholders and rebinds per dialect.
type Dialect interface {
	Name() string
	Migrate(ctx context.Context, db *sql.DB) error
	UpsertInstrument(ctx context.Context, tx *sql.Tx, i *domain.Instrument) error
	IsUniqueViolation(err error) bool
	Rebind(query string) string
}
