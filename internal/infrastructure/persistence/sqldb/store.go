package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsattler/depot-tracker/internal/domain"
)

// Store implements domain.VersioningStore on database/sql with a Dialect.
// All weekly-flow writes go through Apply, which executes the version
// transition and the weekly snapshot as one transaction.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) rebind(query string) string {
	return s.db.Dialect.Rebind(query)
}

func (s *Store) ActiveVersion(ctx context.Context, depotID string) (*domain.DepotVersion, error) {
	query := s.rebind(`
		SELECT id, depot_id, valid_from, valid_to, cash_value, change_types, last_updated
		FROM depot_versions
		WHERE depot_id = $1 AND valid_to IS NULL
	`)

	version, err := scanVersion(s.db.QueryRowContext(ctx, query, depotID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active version: %w", err)
	}

	holdings, err := s.loadHoldings(ctx, version.ID)
	if err != nil {
		return nil, err
	}
	version.Holdings = holdings

	return version, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVersion(row rowScanner) (*domain.DepotVersion, error) {
	var v domain.DepotVersion
	var validTo sql.NullTime
	var changeTypes string

	err := row.Scan(&v.ID, &v.DepotID, &v.ValidFrom, &validTo, &v.CashValue, &changeTypes, &v.LastUpdated)
	if err != nil {
		return nil, err
	}

	if validTo.Valid {
		d := domain.DateOnly(validTo.Time)
		v.ValidTo = &d
	}
	v.ValidFrom = domain.DateOnly(v.ValidFrom)
	v.ChangeTypes = domain.ParseChangeTypes(changeTypes)
	return &v, nil
}

func (s *Store) loadHoldings(ctx context.Context, versionID string) ([]domain.Holding, error) {
	query := s.rebind(`
		SELECT wkn, quantity, buying_date, buying_price
		FROM version_holdings
		WHERE version_id = $1
		ORDER BY ordinal
	`)

	rows, err := s.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("querying holdings: %w", err)
	}
	defer closeRows(rows)

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.InstrumentID, &h.Quantity, &h.BuyingDate, &h.BuyingPrice); err != nil {
			return nil, fmt.Errorf("scanning holding: %w", err)
		}
		h.BuyingDate = domain.DateOnly(h.BuyingDate)
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// Apply executes one publication-date transition. The duplicate check, the
// version mutation and the weekly snapshot insert share a transaction; the
// unique constraint on (depot_id, publication_date) backs the check up
// against races that the initial read misses.
func (s *Store) Apply(ctx context.Context, t *domain.Transition) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		processed, err := s.publicationProcessed(ctx, tx, t.DepotID, t.PublicationDate)
		if err != nil {
			return err
		}
		if processed {
			return fmt.Errorf("depot %s, publication %s: %w",
				t.DepotID, t.PublicationDate.Format(time.DateOnly), domain.ErrDuplicatePublication)
		}

		for i := range t.Instruments {
			if err := s.db.Dialect.UpsertInstrument(ctx, tx, &t.Instruments[i]); err != nil {
				return fmt.Errorf("upsert instrument %s: %w", t.Instruments[i].WKN, err)
			}
		}

		switch {
		case t.RefreshVersionID != "":
			if err := s.refreshVersion(ctx, tx, t); err != nil {
				return err
			}
		case t.NewVersion != nil:
			if err := s.rotateVersion(ctx, tx, t); err != nil {
				return err
			}
		default:
			return fmt.Errorf("transition without version action: %w", domain.ErrInvariantViolation)
		}

		return s.insertSnapshot(ctx, tx, &t.Snapshot)
	})
}

func (s *Store) publicationProcessed(ctx context.Context, tx *sql.Tx, depotID string, date time.Time) (bool, error) {
	query := s.rebind(`SELECT COUNT(*) FROM weekly_snapshots WHERE depot_id = $1 AND publication_date = $2`)

	var count int
	if err := tx.QueryRowContext(ctx, query, depotID, date).Scan(&count); err != nil {
		return false, fmt.Errorf("checking publication: %w", err)
	}
	return count > 0, nil
}

func (s *Store) refreshVersion(ctx context.Context, tx *sql.Tx, t *domain.Transition) error {
	query := s.rebind(`UPDATE depot_versions SET last_updated = $1 WHERE id = $2 AND valid_to IS NULL`)

	res, err := tx.ExecContext(ctx, query, time.Now().UTC(), t.RefreshVersionID)
	if err != nil {
		return fmt.Errorf("refreshing version: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("refreshing version: %w", err)
	} else if n != 1 {
		// The version we read as active was closed underneath us.
		return fmt.Errorf("version %s no longer open: %w", t.RefreshVersionID, domain.ErrStoreConflict)
	}
	return nil
}

func (s *Store) rotateVersion(ctx context.Context, tx *sql.Tx, t *domain.Transition) error {
	v := t.NewVersion

	if !v.ValidFrom.Equal(t.PublicationDate) {
		return fmt.Errorf("successor valid_from %s != publication date %s: %w",
			v.ValidFrom.Format(time.DateOnly), t.PublicationDate.Format(time.DateOnly),
			domain.ErrInvariantViolation)
	}

	if t.CloseVersionID != "" {
		// Closing at the publication date makes predecessor.valid_to equal
		// successor.valid_from by construction: no gap, no overlap.
		query := s.rebind(`UPDATE depot_versions SET valid_to = $1 WHERE id = $2 AND depot_id = $3 AND valid_to IS NULL`)

		res, err := tx.ExecContext(ctx, query, t.PublicationDate, t.CloseVersionID, t.DepotID)
		if err != nil {
			return fmt.Errorf("closing version: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("closing version: %w", err)
		} else if n != 1 {
			return fmt.Errorf("version %s not open for closing: %w", t.CloseVersionID, domain.ErrStoreConflict)
		}
	}

	insert := s.rebind(`
		INSERT INTO depot_versions (id, depot_id, valid_from, valid_to, cash_value, change_types, last_updated)
		VALUES ($1, $2, $3, NULL, $4, $5, $6)
	`)
	_, err := tx.ExecContext(ctx, insert,
		v.ID, v.DepotID, v.ValidFrom, v.CashValue, v.ChangeTypes.String(), v.LastUpdated)
	if err != nil {
		if s.db.Dialect.IsUniqueViolation(err) {
			// The partial unique index caught a second open version.
			return fmt.Errorf("open version already exists for depot %s: %w", t.DepotID, domain.ErrInvariantViolation)
		}
		return fmt.Errorf("inserting version: %w", err)
	}

	holdingInsert := s.rebind(`
		INSERT INTO version_holdings (version_id, wkn, quantity, buying_date, buying_price, ordinal)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	for i, h := range v.Holdings {
		if _, err := tx.ExecContext(ctx, holdingInsert,
			v.ID, h.InstrumentID, h.Quantity, h.BuyingDate, h.BuyingPrice, i); err != nil {
			return fmt.Errorf("inserting holding %s: %w", h.InstrumentID, err)
		}
	}

	txInsert := s.rebind(`
		INSERT INTO version_transactions (version_id, wkn, direction, quantity_delta, ordinal)
		VALUES ($1, $2, $3, $4, $5)
	`)
	for i, tr := range t.Transactions {
		if _, err := tx.ExecContext(ctx, txInsert,
			v.ID, tr.InstrumentID, string(tr.Direction), tr.QuantityDelta, i); err != nil {
			return fmt.Errorf("inserting transaction %s: %w", tr.InstrumentID, err)
		}
	}

	return nil
}

func (s *Store) insertSnapshot(ctx context.Context, tx *sql.Tx, snap *domain.WeeklySnapshot) error {
	insert := s.rebind(`
		INSERT INTO weekly_snapshots (id, depot_id, publication_date, version_id, total_value, cash_value, holdings_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	_, err := tx.ExecContext(ctx, insert,
		snap.ID, snap.DepotID, snap.PublicationDate, snap.VersionID,
		snap.TotalValue, snap.CashValue, snap.HoldingsValue, snap.CreatedAt)
	if err != nil {
		if s.db.Dialect.IsUniqueViolation(err) {
			return fmt.Errorf("depot %s, publication %s: %w",
				snap.DepotID, snap.PublicationDate.Format(time.DateOnly), domain.ErrDuplicatePublication)
		}
		return fmt.Errorf("inserting weekly snapshot: %w", err)
	}

	posInsert := s.rebind(`
		INSERT INTO snapshot_positions (snapshot_id, wkn, quantity, price, value, ordinal)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	for i, p := range snap.Positions {
		if _, err := tx.ExecContext(ctx, posInsert,
			snap.ID, p.InstrumentID, p.Quantity, p.Price, p.Value, i); err != nil {
			return fmt.Errorf("inserting snapshot position %s: %w", p.InstrumentID, err)
		}
	}

	return nil
}

func (s *Store) ActiveInstrumentIDs(ctx context.Context, depotID string) ([]string, error) {
	query := s.rebind(`
		SELECT h.wkn
		FROM version_holdings h
		JOIN depot_versions v ON h.version_id = v.id
		WHERE v.depot_id = $1 AND v.valid_to IS NULL
		ORDER BY h.ordinal
	`)

	rows, err := s.db.QueryContext(ctx, query, depotID)
	if err != nil {
		return nil, fmt.Errorf("querying active instruments: %w", err)
	}
	defer closeRows(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning instrument id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ValueAt(ctx context.Context, depotID string, date time.Time) (*domain.DepotValue, error) {
	query := s.rebind(`
		SELECT publication_date, total_value, cash_value, holdings_value
		FROM weekly_snapshots
		WHERE depot_id = $1 AND publication_date <= $2
		ORDER BY publication_date DESC
		FETCH FIRST 1 ROWS ONLY
	`)

	day := domain.DateOnly(date)
	var v domain.DepotValue
	err := s.db.QueryRowContext(ctx, query, depotID, day).
		Scan(&v.PublicationDate, &v.TotalValue, &v.CashValue, &v.HoldingsValue)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("depot %s at %s: %w", depotID, day.Format(time.DateOnly), domain.ErrValueNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying value: %w", err)
	}

	v.PublicationDate = domain.DateOnly(v.PublicationDate)
	return &v, nil
}

func (s *Store) ListVersions(ctx context.Context, depotID string) ([]domain.VersionSummary, error) {
	query := s.rebind(`
		SELECT v.id, v.valid_from, v.valid_to, v.change_types, COUNT(h.wkn)
		FROM depot_versions v
		LEFT JOIN version_holdings h ON h.version_id = v.id
		WHERE v.depot_id = $1
		GROUP BY v.id, v.valid_from, v.valid_to, v.change_types
		ORDER BY v.valid_from
	`)

	rows, err := s.db.QueryContext(ctx, query, depotID)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer closeRows(rows)

	var versions []domain.VersionSummary
	for rows.Next() {
		var vs domain.VersionSummary
		var validTo sql.NullTime
		var changeTypes string

		if err := rows.Scan(&vs.ID, &vs.ValidFrom, &validTo, &changeTypes, &vs.HoldingCount); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}

		vs.ValidFrom = domain.DateOnly(vs.ValidFrom)
		if validTo.Valid {
			d := domain.DateOnly(validTo.Time)
			vs.ValidTo = &d
		}
		vs.ChangeTypes = domain.ParseChangeTypes(changeTypes)
		versions = append(versions, vs)
	}
	return versions, rows.Err()
}

func (s *Store) ListDepotIDs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT depot_id FROM depot_versions ORDER BY depot_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying depots: %w", err)
	}
	defer closeRows(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning depot id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) BackfillCashValue(ctx context.Context, versionID string, cash domain.Decimal) error {
	query := s.rebind(`UPDATE depot_versions SET cash_value = $1 WHERE id = $2`)

	res, err := s.db.ExecContext(ctx, query, cash, versionID)
	if err != nil {
		return fmt.Errorf("backfilling cash value: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("backfilling cash value: %w", err)
	} else if n == 0 {
		return fmt.Errorf("version %s: %w", versionID, domain.ErrVersionNotFound)
	}

	slog.Info("cash value backfilled", "version_id", versionID, "cash_value", cash)
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}
