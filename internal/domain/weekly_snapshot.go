package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PriceSource supplies the most recent known price per instrument. The price
// updater fills one implementation; tests stub it. Absence of a price is
// normal and triggers the buying-price fallback.
type PriceSource interface {
	PriceFor(instrumentID string) (Decimal, bool)
}

// NoPrices is a PriceSource with no data; every valuation falls back to
// buying prices.
var NoPrices PriceSource = noPrices{}

type noPrices struct{}

func (noPrices) PriceFor(string) (Decimal, bool) { return Zero, false }

// SnapshotPosition is the per-holding valuation recorded with a weekly
// snapshot: the quantity held, the price used and the resulting value.
type SnapshotPosition struct {
	InstrumentID string  `json:"instrument_id"`
	Quantity     Decimal `json:"quantity"`
	Price        Decimal `json:"price"`
	Value        Decimal `json:"value"`
}

// WeeklySnapshot is the unconditional once-per-publication-date value record.
// It is append-only: written exactly once per (depot, publication date) and
// never updated or deleted by normal processing.
type WeeklySnapshot struct {
	ID              string             `json:"id"`
	DepotID         string             `json:"depot_id"`
	PublicationDate time.Time          `json:"publication_date"`
	VersionID       string             `json:"version_id"`
	TotalValue      Decimal            `json:"total_value"`
	CashValue       Decimal            `json:"cash_value"`
	HoldingsValue   Decimal            `json:"holdings_value"`
	Positions       []SnapshotPosition `json:"positions"`
	CreatedAt       time.Time          `json:"created_at"`
}

// BuildWeeklySnapshot values a normalized snapshot against the given price
// source and produces the record to persist. versionID must reference the
// version active after the week's state transition. Each holding is valued at
// quantity times its current price, falling back to the buying price when no
// current price is known.
func BuildWeeklySnapshot(snap *NormalizedSnapshot, versionID string, prices PriceSource) (WeeklySnapshot, error) {
	holdingsValue := Zero
	positions := make([]SnapshotPosition, 0, len(snap.Holdings))

	for _, h := range snap.Holdings {
		price, ok := prices.PriceFor(h.InstrumentID)
		if !ok {
			price = h.BuyingPrice
		}

		value, err := h.Quantity.Mul(price)
		if err != nil {
			return WeeklySnapshot{}, fmt.Errorf("valuing %s: %w", h.InstrumentID, err)
		}
		holdingsValue, err = holdingsValue.Add(value)
		if err != nil {
			return WeeklySnapshot{}, fmt.Errorf("valuing %s: %w", h.InstrumentID, err)
		}

		positions = append(positions, SnapshotPosition{
			InstrumentID: h.InstrumentID,
			Quantity:     h.Quantity,
			Price:        price,
			Value:        value,
		})
	}

	total, err := holdingsValue.Add(snap.CashValue)
	if err != nil {
		return WeeklySnapshot{}, fmt.Errorf("total value: %w", err)
	}

	return WeeklySnapshot{
		ID:              uuid.New().String(),
		DepotID:         snap.DepotID,
		PublicationDate: snap.PublicationDate,
		VersionID:       versionID,
		TotalValue:      total,
		CashValue:       snap.CashValue,
		HoldingsValue:   holdingsValue,
		Positions:       positions,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// DepotValue is the read shape of a value-at query.
type DepotValue struct {
	PublicationDate time.Time `json:"publication_date"`
	TotalValue      Decimal   `json:"total_value"`
	CashValue       Decimal   `json:"cash_value"`
	HoldingsValue   Decimal   `json:"holdings_value"`
}
