package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jsattler/depot-tracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func firstTransition(depotID, day string) *domain.Transition {
	v := domain.NewDepotVersion(depotID, date(day),
		[]domain.Holding{{
			InstrumentID: "WKN1",
			Quantity:     domain.MustDecimal("100"),
			BuyingDate:   date(day),
			BuyingPrice:  domain.MustDecimal("10.00"),
		}},
		domain.MustDecimal("500"), domain.ChangeTypes{domain.ChangeTypeBuy})

	return &domain.Transition{
		DepotID:         depotID,
		PublicationDate: date(day),
		NewVersion:      &v,
		Instruments:     []domain.Instrument{domain.NewInstrument("WKN1", "Test AG", domain.AssetClassStock, "")},
		Snapshot: domain.WeeklySnapshot{
			ID:              "snap-" + day,
			DepotID:         depotID,
			PublicationDate: date(day),
			VersionID:       v.ID,
			TotalValue:      domain.MustDecimal("1500"),
			CashValue:       domain.MustDecimal("500"),
			HoldingsValue:   domain.MustDecimal("1000"),
		},
	}
}

func TestStore_ApplyDuplicateDateRejected(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Apply(ctx, firstTransition("depot-1", "2024-01-05")))

	err := store.Apply(ctx, firstTransition("depot-1", "2024-01-05"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicatePublication))
	assert.Equal(t, 1, store.SnapshotCount("depot-1"))
	assert.Equal(t, 1, store.OpenVersionCount("depot-1"))
}

func TestStore_ApplySecondOpenVersionRejected(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Apply(ctx, firstTransition("depot-1", "2024-01-05")))

	// A second new version without closing the first would leave two open.
	bad := firstTransition("depot-1", "2024-01-12")
	err := store.Apply(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))
	assert.Equal(t, 1, store.OpenVersionCount("depot-1"))
}

func TestStore_RefreshOfClosedVersionConflicts(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Apply(ctx, firstTransition("depot-1", "2024-01-05")))

	refresh := &domain.Transition{
		DepotID:          "depot-1",
		PublicationDate:  date("2024-01-12"),
		RefreshVersionID: "not-the-active-one",
		Snapshot: domain.WeeklySnapshot{
			ID:              "snap-2",
			DepotID:         "depot-1",
			PublicationDate: date("2024-01-12"),
		},
	}
	err := store.Apply(ctx, refresh)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreConflict))
	assert.Equal(t, 1, store.SnapshotCount("depot-1"), "failed apply must not record a snapshot")
}

func TestStore_ValueAtPicksMostRecentOnOrBefore(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Apply(ctx, firstTransition("depot-1", "2024-01-05")))

	active, err := store.ActiveVersion(ctx, "depot-1")
	require.NoError(t, err)
	refresh := &domain.Transition{
		DepotID:          "depot-1",
		PublicationDate:  date("2024-01-12"),
		RefreshVersionID: active.ID,
		Snapshot: domain.WeeklySnapshot{
			ID:              "snap-2",
			DepotID:         "depot-1",
			PublicationDate: date("2024-01-12"),
			VersionID:       active.ID,
			TotalValue:      domain.MustDecimal("1600"),
			CashValue:       domain.MustDecimal("500"),
			HoldingsValue:   domain.MustDecimal("1100"),
		},
	}
	require.NoError(t, store.Apply(ctx, refresh))

	// Mid-week date resolves to the preceding publication.
	value, err := store.ValueAt(ctx, "depot-1", date("2024-01-10"))
	require.NoError(t, err)
	assert.True(t, value.PublicationDate.Equal(date("2024-01-05")))
	assert.True(t, value.TotalValue.Equal(domain.MustDecimal("1500")))

	value, err = store.ValueAt(ctx, "depot-1", date("2024-03-01"))
	require.NoError(t, err)
	assert.True(t, value.PublicationDate.Equal(date("2024-01-12")))

	_, err = store.ValueAt(ctx, "depot-1", date("2024-01-04"))
	assert.True(t, errors.Is(err, domain.ErrValueNotFound))
}

func TestStore_BackfillCashValue(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Apply(ctx, firstTransition("depot-1", "2024-01-05")))
	active, err := store.ActiveVersion(ctx, "depot-1")
	require.NoError(t, err)

	require.NoError(t, store.BackfillCashValue(ctx, active.ID, domain.MustDecimal("999")))

	reloaded, err := store.ActiveVersion(ctx, "depot-1")
	require.NoError(t, err)
	assert.True(t, reloaded.CashValue.Equal(domain.MustDecimal("999")))

	err = store.BackfillCashValue(ctx, "missing", domain.MustDecimal("1"))
	assert.True(t, errors.Is(err, domain.ErrVersionNotFound))
}

func TestStore_ActiveVersionReturnsCopy(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Apply(ctx, firstTransition("depot-1", "2024-01-05")))

	v, err := store.ActiveVersion(ctx, "depot-1")
	require.NoError(t, err)
	v.Holdings[0].Quantity = domain.MustDecimal("1")

	again, err := store.ActiveVersion(ctx, "depot-1")
	require.NoError(t, err)
	assert.True(t, again.Holdings[0].Quantity.Equal(domain.MustDecimal("100")),
		"callers must not be able to mutate stored state")
}
