package domain

import "testing"

type priceMap map[string]string

func (m priceMap) PriceFor(id string) (Decimal, bool) {
	s, ok := m[id]
	if !ok {
		return Zero, false
	}
	return MustDecimal(s), true
}

func TestBuildWeeklySnapshot_FallsBackToBuyingPrice(t *testing.T) {
	snap := snapshot(holding("WKN1", "100")) // buying price 10.00, cash 500

	ws, err := BuildWeeklySnapshot(snap, "v1", NoPrices)
	if err != nil {
		t.Fatalf("BuildWeeklySnapshot failed: %v", err)
	}

	if !ws.HoldingsValue.Equal(MustDecimal("1000.00")) {
		t.Errorf("expected holdings value 1000.00, got %s", ws.HoldingsValue)
	}
	if !ws.TotalValue.Equal(MustDecimal("1500.00")) {
		t.Errorf("expected total 1500.00, got %s", ws.TotalValue)
	}
	if ws.VersionID != "v1" {
		t.Errorf("snapshot must reference the active version, got %q", ws.VersionID)
	}
}

func TestBuildWeeklySnapshot_UsesCurrentPrices(t *testing.T) {
	snap := snapshot(holding("WKN1", "100"), holding("WKN2", "10"))

	ws, err := BuildWeeklySnapshot(snap, "v1", priceMap{"WKN1": "12.50"})
	if err != nil {
		t.Fatalf("BuildWeeklySnapshot failed: %v", err)
	}

	// WKN1 at current 12.50, WKN2 falls back to buying 10.00.
	if !ws.HoldingsValue.Equal(MustDecimal("1350.00")) {
		t.Errorf("expected holdings value 1350.00, got %s", ws.HoldingsValue)
	}
	if len(ws.Positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(ws.Positions))
	}
	if !ws.Positions[0].Price.Equal(MustDecimal("12.50")) {
		t.Errorf("expected recorded price 12.50 for WKN1, got %s", ws.Positions[0].Price)
	}
	if !ws.Positions[1].Price.Equal(MustDecimal("10.00")) {
		t.Errorf("expected fallback price 10.00 for WKN2, got %s", ws.Positions[1].Price)
	}
}

func TestBuildWeeklySnapshot_AllCash(t *testing.T) {
	ws, err := BuildWeeklySnapshot(snapshot(), "v1", NoPrices)
	if err != nil {
		t.Fatalf("BuildWeeklySnapshot failed: %v", err)
	}
	if !ws.TotalValue.Equal(MustDecimal("500")) {
		t.Errorf("expected total = cash = 500, got %s", ws.TotalValue)
	}
	if !ws.HoldingsValue.IsZero() {
		t.Errorf("expected zero holdings value, got %s", ws.HoldingsValue)
	}
}
