package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jsattler/depot-tracker/internal/domain"
)

// Store is an in-memory VersioningStore. It backs unit tests and the
// "memory" driver for local runs; the mutex gives it the same atomic-apply
// semantics the SQL store gets from transactions.
type Store struct {
	mu           sync.RWMutex
	instruments  map[string]domain.Instrument
	versions     map[string][]*domain.DepotVersion   // depot id -> versions, oldest first
	snapshots    map[string][]*domain.WeeklySnapshot // depot id -> snapshots, oldest first
	transactions map[string][]domain.Transaction     // version id -> diff output
}

func NewStore() *Store {
	return &Store{
		instruments:  make(map[string]domain.Instrument),
		versions:     make(map[string][]*domain.DepotVersion),
		snapshots:    make(map[string][]*domain.WeeklySnapshot),
		transactions: make(map[string][]domain.Transaction),
	}
}

func (s *Store) activeLocked(depotID string) *domain.DepotVersion {
	for _, v := range s.versions[depotID] {
		if v.IsOpen() {
			return v
		}
	}
	return nil
}

func (s *Store) ActiveVersion(ctx context.Context, depotID string) (*domain.DepotVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.activeLocked(depotID)
	if v == nil {
		return nil, nil
	}
	cp := *v
	cp.Holdings = append([]domain.Holding(nil), v.Holdings...)
	return &cp, nil
}

func (s *Store) Apply(ctx context.Context, t *domain.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range s.snapshots[t.DepotID] {
		if snap.PublicationDate.Equal(t.Snapshot.PublicationDate) {
			return fmt.Errorf("depot %s, publication %s: %w",
				t.DepotID, t.Snapshot.PublicationDate.Format(time.DateOnly), domain.ErrDuplicatePublication)
		}
	}

	switch {
	case t.RefreshVersionID != "":
		active := s.activeLocked(t.DepotID)
		if active == nil || active.ID != t.RefreshVersionID {
			return fmt.Errorf("refresh of version %s: %w", t.RefreshVersionID, domain.ErrStoreConflict)
		}
		active.LastUpdated = time.Now().UTC()

	case t.NewVersion != nil:
		if t.CloseVersionID != "" {
			active := s.activeLocked(t.DepotID)
			if active == nil || active.ID != t.CloseVersionID {
				return fmt.Errorf("close of version %s: %w", t.CloseVersionID, domain.ErrStoreConflict)
			}
			if !t.NewVersion.ValidFrom.Equal(t.PublicationDate) {
				return fmt.Errorf("successor valid_from %s != publication date %s: %w",
					t.NewVersion.ValidFrom.Format(time.DateOnly),
					t.PublicationDate.Format(time.DateOnly), domain.ErrInvariantViolation)
			}
			closedAt := t.PublicationDate
			active.ValidTo = &closedAt
		}
		if open := s.activeLocked(t.DepotID); open != nil {
			return fmt.Errorf("depot %s already has open version %s: %w",
				t.DepotID, open.ID, domain.ErrInvariantViolation)
		}
		v := *t.NewVersion
		v.Holdings = append([]domain.Holding(nil), t.NewVersion.Holdings...)
		s.versions[t.DepotID] = append(s.versions[t.DepotID], &v)
		s.transactions[v.ID] = append([]domain.Transaction(nil), t.Transactions...)

	default:
		return fmt.Errorf("transition without version action: %w", domain.ErrInvariantViolation)
	}

	for _, inst := range t.Instruments {
		if _, seen := s.instruments[inst.WKN]; !seen {
			s.instruments[inst.WKN] = inst
		}
	}

	snap := t.Snapshot
	snap.Positions = append([]domain.SnapshotPosition(nil), t.Snapshot.Positions...)
	s.snapshots[t.DepotID] = append(s.snapshots[t.DepotID], &snap)
	sort.Slice(s.snapshots[t.DepotID], func(i, j int) bool {
		return s.snapshots[t.DepotID][i].PublicationDate.Before(s.snapshots[t.DepotID][j].PublicationDate)
	})

	return nil
}

func (s *Store) ActiveInstrumentIDs(ctx context.Context, depotID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := s.activeLocked(depotID)
	if active == nil {
		return nil, nil
	}
	return active.InstrumentIDs(), nil
}

func (s *Store) ValueAt(ctx context.Context, depotID string, date time.Time) (*domain.DepotValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.DateOnly(date)
	var best *domain.WeeklySnapshot
	for _, snap := range s.snapshots[depotID] {
		if snap.PublicationDate.After(day) {
			break
		}
		best = snap
	}
	if best == nil {
		return nil, fmt.Errorf("depot %s at %s: %w", depotID, day.Format(time.DateOnly), domain.ErrValueNotFound)
	}

	return &domain.DepotValue{
		PublicationDate: best.PublicationDate,
		TotalValue:      best.TotalValue,
		CashValue:       best.CashValue,
		HoldingsValue:   best.HoldingsValue,
	}, nil
}

func (s *Store) ListVersions(ctx context.Context, depotID string) ([]domain.VersionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[depotID]
	out := make([]domain.VersionSummary, 0, len(versions))
	for _, v := range versions {
		out = append(out, domain.VersionSummary{
			ID:           v.ID,
			ValidFrom:    v.ValidFrom,
			ValidTo:      v.ValidTo,
			ChangeTypes:  v.ChangeTypes,
			HoldingCount: len(v.Holdings),
		})
	}
	return out, nil
}

func (s *Store) ListDepotIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.versions))
	for id := range s.versions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) BackfillCashValue(ctx context.Context, versionID string, cash domain.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, versions := range s.versions {
		for _, v := range versions {
			if v.ID == versionID {
				v.CashValue = cash
				return nil
			}
		}
	}
	return fmt.Errorf("version %s: %w", versionID, domain.ErrVersionNotFound)
}

// Transactions returns the persisted diff output of a version. Test helper.
func (s *Store) Transactions(versionID string) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Transaction(nil), s.transactions[versionID]...)
}

// OpenVersionCount reports how many open versions a depot has. Test helper
// for the single-open-version property.
func (s *Store) OpenVersionCount(depotID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, v := range s.versions[depotID] {
		if v.IsOpen() {
			n++
		}
	}
	return n
}

// SnapshotCount reports how many weekly snapshots a depot has. Test helper.
func (s *Store) SnapshotCount(depotID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots[depotID])
}

// Instrument returns a catalog entry. Test helper.
func (s *Store) Instrument(wkn string) (domain.Instrument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instruments[wkn]
	return inst, ok
}
