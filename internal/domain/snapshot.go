package domain

import (
	"fmt"
	"time"
)

// RawHolding is one row of the publisher's weekly table, as delivered by the
// extraction collaborator. Unvalidated.
type RawHolding struct {
	InstrumentID   string     `json:"instrument_id"`
	UnderlyingName string     `json:"underlying_name"`
	AssetClass     AssetClass `json:"asset_class"`
	Subtype        string     `json:"subtype,omitempty"`
	Quantity       Decimal    `json:"quantity"`
	BuyingDate     time.Time  `json:"buying_date"`
	BuyingPrice    Decimal    `json:"buying_price"`
}

// RawPublication is the full weekly record handed over by the extraction
// collaborator. Nothing in it is trusted until Normalize has accepted it.
type RawPublication struct {
	DepotID         string       `json:"depot_id"`
	PublicationDate time.Time    `json:"publication_date"`
	Holdings        []RawHolding `json:"holdings"`
	CashValue       Decimal      `json:"cash_value"`
}

// Holding is a validated position within exactly one depot version. Buying
// date and price are the values extracted when the position first appeared;
// they do not change while the position is held.
type Holding struct {
	InstrumentID string    `json:"instrument_id"`
	Quantity     Decimal   `json:"quantity"`
	BuyingDate   time.Time `json:"buying_date"`
	BuyingPrice  Decimal   `json:"buying_price"`
}

// NormalizedSnapshot is the canonical form of one weekly publication: a
// publication date, an ordered list of holdings unique by instrument id, the
// catalog rows for any instruments seen in it, and the cash value.
type NormalizedSnapshot struct {
	DepotID         string
	PublicationDate time.Time
	Holdings        []Holding
	Instruments     []Instrument
	CashValue       Decimal
}

// DateOnly truncates t to a calendar date in UTC. All valid_from / valid_to /
// publication date comparisons happen on day granularity.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func malformed(depotID string, date time.Time, format string, args ...interface{}) error {
	detail := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: depot %s, publication %s: %s",
		ErrMalformedSnapshot, depotID, date.Format(time.DateOnly), detail)
}

// Normalize validates a raw publication in full and produces its canonical
// snapshot. Acceptance is all-or-nothing: one bad row rejects the whole
// publication, because a partially accepted depot would corrupt every diff
// computed after it. Holding order follows the input row order.
func Normalize(raw RawPublication) (*NormalizedSnapshot, error) {
	pubDate := DateOnly(raw.PublicationDate)

	if raw.DepotID == "" {
		return nil, malformed(raw.DepotID, pubDate, "missing depot id")
	}
	if raw.PublicationDate.IsZero() {
		return nil, malformed(raw.DepotID, pubDate, "missing publication date")
	}
	if raw.CashValue.IsNegative() {
		return nil, malformed(raw.DepotID, pubDate, "negative cash value %s", raw.CashValue)
	}

	seen := make(map[string]struct{}, len(raw.Holdings))
	holdings := make([]Holding, 0, len(raw.Holdings))
	instruments := make([]Instrument, 0, len(raw.Holdings))

	for i, row := range raw.Holdings {
		if row.InstrumentID == "" {
			return nil, malformed(raw.DepotID, pubDate, "row %d: missing instrument id", i)
		}
		if _, dup := seen[row.InstrumentID]; dup {
			return nil, malformed(raw.DepotID, pubDate, "row %d: duplicate instrument %s", i, row.InstrumentID)
		}
		if !ValidAssetClass(row.AssetClass) {
			return nil, malformed(raw.DepotID, pubDate, "row %d (%s): unknown asset class %q", i, row.InstrumentID, row.AssetClass)
		}
		if row.Quantity.IsNegative() {
			return nil, malformed(raw.DepotID, pubDate, "row %d (%s): negative quantity %s", i, row.InstrumentID, row.Quantity)
		}
		if row.BuyingPrice.IsNegative() {
			return nil, malformed(raw.DepotID, pubDate, "row %d (%s): negative buying price %s", i, row.InstrumentID, row.BuyingPrice)
		}
		if row.BuyingDate.IsZero() {
			return nil, malformed(raw.DepotID, pubDate, "row %d (%s): missing buying date", i, row.InstrumentID)
		}
		buyDate := DateOnly(row.BuyingDate)
		if buyDate.After(pubDate) {
			return nil, malformed(raw.DepotID, pubDate, "row %d (%s): buying date %s after publication date",
				i, row.InstrumentID, buyDate.Format(time.DateOnly))
		}

		seen[row.InstrumentID] = struct{}{}
		holdings = append(holdings, Holding{
			InstrumentID: row.InstrumentID,
			Quantity:     row.Quantity,
			BuyingDate:   buyDate,
			BuyingPrice:  row.BuyingPrice,
		})
		instruments = append(instruments, NewInstrument(row.InstrumentID, row.UnderlyingName, row.AssetClass, row.Subtype))
	}

	return &NormalizedSnapshot{
		DepotID:         raw.DepotID,
		PublicationDate: pubDate,
		Holdings:        holdings,
		Instruments:     instruments,
		CashValue:       raw.CashValue,
	}, nil
}
