package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jsattler/depot-tracker/internal/domain"
	"github.com/jsattler/depot-tracker/internal/infrastructure/persistence/sqldb/migrations"
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

func (d *OracleDialect) Migrate(ctx context.Context, db *sql.DB) error {
	// Goose has no usable Oracle support with go-ora, so the migration is
	// applied statement by statement, split on '/' as in Oracle scripts.
	content, err := migrations.OracleFS.ReadFile("oracle/20240101000000_init.sql")
	if err != nil {
		return fmt.Errorf("reading migration file: %w", err)
	}

	for _, stmt := range strings.Split(string(content), "/") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := db.ExecContext(ctx, stmt); err != nil {
			// ORA-00955: name is already used by an existing object
			if !strings.Contains(err.Error(), "ORA-00955") {
				return fmt.Errorf("migrating: %s: %w", stmt, err)
			}
		}
	}
	return nil
}

func (d *OracleDialect) UpsertInstrument(ctx context.Context, tx *sql.Tx, i *domain.Instrument) error {
	query := `MERGE INTO instruments t
             USING (SELECT :1 AS wkn_val FROM dual) s
             ON (t.wkn = s.wkn_val)
             WHEN NOT MATCHED THEN
               INSERT (wkn, name, asset_class, subtype)
               VALUES (:2, :3, :4, :5)`

	_, err := tx.ExecContext(ctx, query,
		i.WKN,                // 1
		i.WKN,                // 2 (INSERT)
		i.Name,               // 3
		string(i.AssetClass), // 4
		i.Subtype,            // 5
	)
	return err
}

func (d *OracleDialect) IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ORA-00001")
}

func (d *OracleDialect) Rebind(query string) string {
	for i := 20; i >= 1; i-- {
		query = strings.ReplaceAll(query, fmt.Sprintf("$%d", i), fmt.Sprintf(":%d", i))
	}
	return query
}
