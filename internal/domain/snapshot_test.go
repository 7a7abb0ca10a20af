package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func rawRow(id, qty string) RawHolding {
	return RawHolding{
		InstrumentID:   id,
		UnderlyingName: "Test AG",
		AssetClass:     AssetClassStock,
		Quantity:       MustDecimal(qty),
		BuyingDate:     date("2024-01-03"),
		BuyingPrice:    MustDecimal("10.00"),
	}
}

func rawPublication(rows ...RawHolding) RawPublication {
	return RawPublication{
		DepotID:         "depot-1",
		PublicationDate: date("2024-01-05"),
		Holdings:        rows,
		CashValue:       MustDecimal("500"),
	}
}

func TestNormalize_Valid(t *testing.T) {
	raw := rawPublication(rawRow("WKN1", "100"), rawRow("WKN2", "50"))

	snap, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(snap.Holdings) != 2 {
		t.Fatalf("expected 2 holdings, got %d", len(snap.Holdings))
	}
	// Order must follow the input rows.
	if snap.Holdings[0].InstrumentID != "WKN1" || snap.Holdings[1].InstrumentID != "WKN2" {
		t.Errorf("holding order not preserved: %+v", snap.Holdings)
	}
	if len(snap.Instruments) != 2 {
		t.Errorf("expected 2 catalog instruments, got %d", len(snap.Instruments))
	}
	if !snap.PublicationDate.Equal(date("2024-01-05")) {
		t.Errorf("unexpected publication date %s", snap.PublicationDate)
	}
}

func TestNormalize_TruncatesToDate(t *testing.T) {
	raw := rawPublication(rawRow("WKN1", "1"))
	raw.PublicationDate = time.Date(2024, 1, 5, 17, 30, 12, 0, time.UTC)

	snap, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !snap.PublicationDate.Equal(date("2024-01-05")) {
		t.Errorf("expected date truncation, got %s", snap.PublicationDate)
	}
}

func TestNormalize_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RawPublication)
		detail string
	}{
		{
			name:   "missing instrument id",
			mutate: func(r *RawPublication) { r.Holdings[0].InstrumentID = "" },
			detail: "missing instrument id",
		},
		{
			name:   "duplicate instrument",
			mutate: func(r *RawPublication) { r.Holdings[1].InstrumentID = "WKN1" },
			detail: "duplicate instrument",
		},
		{
			name:   "negative quantity",
			mutate: func(r *RawPublication) { r.Holdings[0].Quantity = MustDecimal("-1") },
			detail: "negative quantity",
		},
		{
			name:   "negative buying price",
			mutate: func(r *RawPublication) { r.Holdings[1].BuyingPrice = MustDecimal("-0.01") },
			detail: "negative buying price",
		},
		{
			name:   "buying date after publication",
			mutate: func(r *RawPublication) { r.Holdings[0].BuyingDate = date("2024-02-01") },
			detail: "after publication date",
		},
		{
			name:   "missing buying date",
			mutate: func(r *RawPublication) { r.Holdings[0].BuyingDate = time.Time{} },
			detail: "missing buying date",
		},
		{
			name:   "negative cash",
			mutate: func(r *RawPublication) { r.CashValue = MustDecimal("-500") },
			detail: "negative cash value",
		},
		{
			name:   "unknown asset class",
			mutate: func(r *RawPublication) { r.Holdings[0].AssetClass = "crypto" },
			detail: "unknown asset class",
		},
		{
			name:   "missing depot id",
			mutate: func(r *RawPublication) { r.DepotID = "" },
			detail: "missing depot id",
		},
		{
			name:   "missing publication date",
			mutate: func(r *RawPublication) { r.PublicationDate = time.Time{} },
			detail: "missing publication date",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := rawPublication(rawRow("WKN1", "100"), rawRow("WKN2", "50"))
			tc.mutate(&raw)

			snap, err := Normalize(raw)
			if snap != nil {
				t.Fatalf("expected rejection, got snapshot %+v", snap)
			}
			if !errors.Is(err, ErrMalformedSnapshot) {
				t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.detail) {
				t.Errorf("error %q does not name the offending field (%q)", err, tc.detail)
			}
		})
	}
}

func TestNormalize_BuyingDateOnPublicationDateAllowed(t *testing.T) {
	row := rawRow("WKN1", "1")
	row.BuyingDate = date("2024-01-05")

	if _, err := Normalize(rawPublication(row)); err != nil {
		t.Fatalf("same-day buying date must pass: %v", err)
	}
}

func TestNormalize_EmptyHoldingsIsLegal(t *testing.T) {
	snap, err := Normalize(rawPublication())
	if err != nil {
		t.Fatalf("all-cash publication must pass: %v", err)
	}
	if len(snap.Holdings) != 0 {
		t.Errorf("expected no holdings, got %d", len(snap.Holdings))
	}
}
