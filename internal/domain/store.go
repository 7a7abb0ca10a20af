package domain

import (
	"context"
	"time"
)

// Transition is the complete write for one publication date, produced by the
// ingest pipeline and applied atomically by the store. Exactly one of the
// three shapes is populated:
//
//   - refresh week:  RefreshVersionID set, NewVersion nil
//   - first version: NewVersion set, CloseVersionID empty
//   - rotation:      NewVersion set, CloseVersionID set
//
// Snapshot is always present; a publication without its weekly snapshot is
// not a supported state.
type Transition struct {
	DepotID          string
	PublicationDate  time.Time
	RefreshVersionID string
	CloseVersionID   string
	NewVersion       *DepotVersion
	Instruments      []Instrument
	Transactions     []Transaction
	Snapshot         WeeklySnapshot
}

// VersioningStore owns all persisted depot entities. Apply is the only write
// path of the weekly flow and must be atomic per publication date: either the
// version transition and the weekly snapshot both land, or neither does.
// Reads only ever observe committed state.
type VersioningStore interface {
	// ActiveVersion returns the open version of the depot timeline, or
	// (nil, nil) when the timeline has no version yet.
	ActiveVersion(ctx context.Context, depotID string) (*DepotVersion, error)

	// Apply executes one publication-date transition atomically. It returns
	// ErrDuplicatePublication when the date was already processed (leaving
	// all state untouched), ErrStoreConflict when a concurrent writer won,
	// and ErrInvariantViolation when the write would break the timeline.
	Apply(ctx context.Context, t *Transition) error

	// ActiveInstrumentIDs returns the instrument identifiers of the open
	// version in holding order. Consumed by the price-fetching collaborator.
	ActiveInstrumentIDs(ctx context.Context, depotID string) ([]string, error)

	// ValueAt returns the depot value as of the most recent weekly snapshot
	// on or before date, or ErrValueNotFound.
	ValueAt(ctx context.Context, depotID string, date time.Time) (*DepotValue, error)

	// ListVersions returns the full version history, oldest first.
	ListVersions(ctx context.Context, depotID string) ([]VersionSummary, error)

	// ListDepotIDs returns every depot with at least one version.
	ListDepotIDs(ctx context.Context) ([]string, error)

	// BackfillCashValue corrects the cash value of a version outside the
	// weekly flow. The single administrative exception to closed-version
	// immutability.
	BackfillCashValue(ctx context.Context, versionID string, cash Decimal) error
}
