package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsattler/depot-tracker/internal/domain"
)

// conflictRetries bounds the internal retry of ErrStoreConflict. Conflicts
// are only expected from accidental double invocation and resolve on the
// first retry in practice.
const conflictRetries = 3

// IngestResult tells the pipeline orchestrator what one publication did.
type IngestResult struct {
	Duplicate    bool                 `json:"duplicate"`
	Rotated      bool                 `json:"rotated"`
	VersionID    string               `json:"version_id"`
	SnapshotID   string               `json:"snapshot_id,omitempty"`
	Transactions []domain.Transaction `json:"transactions,omitempty"`
}

// IngestService runs the weekly pipeline for one publication: normalize,
// diff against the active version, decide refresh versus rotation, and hand
// the whole transition plus the weekly value snapshot to the store as one
// atomic write.
type IngestService struct {
	store  domain.VersioningStore
	prices domain.PriceSource
}

func NewIngestService(store domain.VersioningStore, prices domain.PriceSource) *IngestService {
	if prices == nil {
		prices = domain.NoPrices
	}
	return &IngestService{store: store, prices: prices}
}

// ProcessPublication ingests one raw weekly publication. Reprocessing an
// already-processed publication date is a no-op reported via
// IngestResult.Duplicate, not an error. Any error leaves the store exactly
// as it was.
func (s *IngestService) ProcessPublication(ctx context.Context, raw domain.RawPublication) (*IngestResult, error) {
	snap, err := domain.Normalize(raw)
	if err != nil {
		return nil, err
	}

	var result *IngestResult
	for attempt := 1; ; attempt++ {
		result, err = s.processOnce(ctx, snap)
		if err == nil || !errors.Is(err, domain.ErrStoreConflict) || attempt >= conflictRetries {
			break
		}
		slog.Warn("store conflict, retrying publication",
			"depot_id", snap.DepotID,
			"publication_date", snap.PublicationDate.Format(time.DateOnly),
			"attempt", attempt)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("publication processed",
		"depot_id", snap.DepotID,
		"publication_date", snap.PublicationDate.Format(time.DateOnly),
		"duplicate", result.Duplicate,
		"rotated", result.Rotated,
		"transactions", len(result.Transactions))
	return result, nil
}

func (s *IngestService) processOnce(ctx context.Context, snap *domain.NormalizedSnapshot) (*IngestResult, error) {
	active, err := s.store.ActiveVersion(ctx, snap.DepotID)
	if err != nil {
		return nil, fmt.Errorf("loading active version: %w", err)
	}

	diff := domain.Diff(active, snap)

	transition := &domain.Transition{
		DepotID:         snap.DepotID,
		PublicationDate: snap.PublicationDate,
		Instruments:     snap.Instruments,
	}

	result := &IngestResult{Transactions: diff.Transactions()}

	switch {
	case active != nil && diff.Empty():
		// Self-loop: composition unchanged, only touch last_updated.
		transition.RefreshVersionID = active.ID
		result.VersionID = active.ID

	case active == nil:
		// First publication of the timeline. Change types come from the
		// diff; an all-cash depot legitimately starts with an empty set.
		v := domain.NewDepotVersion(snap.DepotID, snap.PublicationDate, snap.Holdings, snap.CashValue, diff.ChangeTypes())
		transition.NewVersion = &v
		transition.Transactions = diff.Transactions()
		result.VersionID = v.ID
		result.Rotated = true

	default:
		// Structural change: close the active version at the publication
		// date and open its successor at the same date.
		v := domain.NewDepotVersion(snap.DepotID, snap.PublicationDate, carryForward(active, snap), snap.CashValue, diff.ChangeTypes())
		transition.CloseVersionID = active.ID
		transition.NewVersion = &v
		transition.Transactions = diff.Transactions()
		result.VersionID = v.ID
		result.Rotated = true
	}

	snapshot, err := domain.BuildWeeklySnapshot(snap, result.VersionID, s.prices)
	if err != nil {
		return nil, err
	}
	transition.Snapshot = snapshot
	result.SnapshotID = snapshot.ID

	if err := s.store.Apply(ctx, transition); err != nil {
		if errors.Is(err, domain.ErrDuplicatePublication) {
			slog.Debug("publication already processed",
				"depot_id", snap.DepotID,
				"publication_date", snap.PublicationDate.Format(time.DateOnly))
			return &IngestResult{Duplicate: true}, nil
		}
		return nil, err
	}

	return result, nil
}

// carryForward builds the successor version's holdings. Positions retained
// with the same quantity keep the buying date and price of the version they
// came from; new and quantity-changed positions take the snapshot's values.
func carryForward(active *domain.DepotVersion, snap *domain.NormalizedSnapshot) []domain.Holding {
	holdings := make([]domain.Holding, 0, len(snap.Holdings))
	for _, h := range snap.Holdings {
		if prev := active.HoldingOf(h.InstrumentID); prev != nil && prev.Quantity.Equal(h.Quantity) {
			holdings = append(holdings, *prev)
			continue
		}
		holdings = append(holdings, h)
	}
	return holdings
}
