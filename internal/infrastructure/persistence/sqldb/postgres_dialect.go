package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jsattler/depot-tracker/internal/domain"
	"github.com/jsattler/depot-tracker/internal/infrastructure/persistence/sqldb/migrations"
	"github.com/pressly/goose/v3"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.PostgresFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "postgres"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

func (d *PostgresDialect) UpsertInstrument(ctx context.Context, tx *sql.Tx, i *domain.Instrument) error {
	// First sight wins: attributes of an already-known instrument are never
	// overwritten by a later publication.
	query := `
		INSERT INTO instruments (wkn, name, asset_class, subtype)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (wkn) DO NOTHING
	`
	_, err := tx.ExecContext(ctx, query, i.WKN, i.Name, string(i.AssetClass), i.Subtype)
	return err
}

func (d *PostgresDialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (d *PostgresDialect) Rebind(query string) string { return query }
