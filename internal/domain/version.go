package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies a structural change between two consecutive versions.
type ChangeType string

const (
	ChangeTypeBuy  ChangeType = "BUY"
	ChangeTypeSell ChangeType = "SELL"
)

// ChangeTypes is the set of distinct change directions that produced a
// version. It is empty only for an initial all-cash version; a week may
// legitimately contain both directions.
type ChangeTypes []ChangeType

func (c ChangeTypes) Has(t ChangeType) bool {
	for _, ct := range c {
		if ct == t {
			return true
		}
	}
	return false
}

func (c ChangeTypes) add(t ChangeType) ChangeTypes {
	if c.Has(t) {
		return c
	}
	return append(c, t)
}

// String renders the set in canonical BUY-before-SELL order, e.g. "BUY,SELL".
func (c ChangeTypes) String() string {
	parts := make([]string, 0, 2)
	if c.Has(ChangeTypeBuy) {
		parts = append(parts, string(ChangeTypeBuy))
	}
	if c.Has(ChangeTypeSell) {
		parts = append(parts, string(ChangeTypeSell))
	}
	return strings.Join(parts, ",")
}

// ParseChangeTypes is the inverse of String. Unknown tokens are ignored.
func ParseChangeTypes(s string) ChangeTypes {
	var c ChangeTypes
	for _, tok := range strings.Split(s, ",") {
		switch ChangeType(strings.TrimSpace(tok)) {
		case ChangeTypeBuy:
			c = c.add(ChangeTypeBuy)
		case ChangeTypeSell:
			c = c.add(ChangeTypeSell)
		}
	}
	return c
}

// DepotVersion is the authoritative unit of depot history. Its validity
// window is [ValidFrom, ValidTo); ValidTo == nil marks the single open
// version of the timeline. A closed version is immutable except for the
// administrative cash backfill.
type DepotVersion struct {
	ID          string      `json:"id"`
	DepotID     string      `json:"depot_id"`
	ValidFrom   time.Time   `json:"valid_from"`
	ValidTo     *time.Time  `json:"valid_to,omitempty"`
	Holdings    []Holding   `json:"holdings"`
	CashValue   Decimal     `json:"cash_value"`
	ChangeTypes ChangeTypes `json:"change_types"`
	LastUpdated time.Time   `json:"last_updated"`
}

func NewDepotVersion(depotID string, validFrom time.Time, holdings []Holding, cash Decimal, changes ChangeTypes) DepotVersion {
	return DepotVersion{
		ID:          uuid.New().String(),
		DepotID:     depotID,
		ValidFrom:   DateOnly(validFrom),
		Holdings:    holdings,
		CashValue:   cash,
		ChangeTypes: changes,
		LastUpdated: time.Now().UTC(),
	}
}

func (v *DepotVersion) IsOpen() bool {
	return v.ValidTo == nil
}

// HoldingOf returns the version's holding for the given instrument, or nil.
func (v *DepotVersion) HoldingOf(instrumentID string) *Holding {
	for i := range v.Holdings {
		if v.Holdings[i].InstrumentID == instrumentID {
			return &v.Holdings[i]
		}
	}
	return nil
}

// InstrumentIDs returns the instrument identifiers in holding order.
func (v *DepotVersion) InstrumentIDs() []string {
	ids := make([]string, len(v.Holdings))
	for i, h := range v.Holdings {
		ids[i] = h.InstrumentID
	}
	return ids
}

// VersionSummary is the listing shape exposed to reporting consumers.
type VersionSummary struct {
	ID           string      `json:"id"`
	ValidFrom    time.Time   `json:"valid_from"`
	ValidTo      *time.Time  `json:"valid_to,omitempty"`
	ChangeTypes  ChangeTypes `json:"change_types"`
	HoldingCount int         `json:"holding_count"`
}
