package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/jsattler/depot-tracker/internal/domain"
	"github.com/jsattler/depot-tracker/internal/infrastructure/marketdata"
)

// instrumentLister is the slice of the store the price updater needs: which
// depots exist and which instruments are currently held.
type instrumentLister interface {
	ListDepotIDs(ctx context.Context) ([]string, error)
	ActiveInstrumentIDs(ctx context.Context, depotID string) ([]string, error)
}

// PriceUpdater periodically polls quotes for every instrument held by any
// depot and refreshes the price book. It is fully decoupled from versioning
// correctness: quote failures are logged and skipped, never propagated into
// the weekly flow.
type PriceUpdater struct {
	store    instrumentLister
	provider marketdata.QuoteProvider
	book     *PriceBook
	interval time.Duration
	stopChan chan struct{}
}

func NewPriceUpdater(store instrumentLister, provider marketdata.QuoteProvider, book *PriceBook, interval time.Duration) *PriceUpdater {
	return &PriceUpdater{
		store:    store,
		provider: provider,
		book:     book,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (u *PriceUpdater) Start(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	slog.Info("price updater started", "interval", u.interval)

	for {
		select {
		case <-ticker.C:
			u.refresh(ctx)
		case <-u.stopChan:
			slog.Info("price updater stopped")
			return
		case <-ctx.Done():
			slog.Info("price updater stopped due to context cancellation")
			return
		}
	}
}

func (u *PriceUpdater) Stop() {
	close(u.stopChan)
}

func (u *PriceUpdater) refresh(ctx context.Context) {
	depots, err := u.store.ListDepotIDs(ctx)
	if err != nil {
		slog.Error("listing depots for price refresh", "error", err)
		return
	}

	updated := 0
	for _, depotID := range depots {
		ids, err := u.store.ActiveInstrumentIDs(ctx, depotID)
		if err != nil {
			slog.Error("listing active instruments", "depot_id", depotID, "error", err)
			continue
		}

		for _, id := range ids {
			quote, err := u.provider.GetQuote(ctx, id)
			if err != nil {
				slog.Warn("quote unavailable", "instrument_id", id, "error", err)
				continue
			}

			// The marketdata boundary speaks shopspring decimals; convert
			// through the canonical string form.
			price, err := domain.NewDecimalFromString(quote.Price.String())
			if err != nil {
				slog.Error("unparseable quote price", "instrument_id", id, "price", quote.Price, "error", err)
				continue
			}

			u.book.Set(id, price)
			updated++
		}
	}

	slog.Info("price refresh complete", "depots", len(depots), "updated", updated)
}
