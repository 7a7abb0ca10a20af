package domain

// Transaction is one classified change between the active version and a new
// snapshot: a full or partial buy or sell of a single instrument.
// QuantityDelta is always positive; Direction carries the sign.
type Transaction struct {
	InstrumentID  string     `json:"instrument_id"`
	Direction     ChangeType `json:"direction"`
	QuantityDelta Decimal    `json:"quantity_delta"`
}

// DiffResult is the change-set between the currently active version and a
// normalized snapshot. Added holds brand-new positions, Removed fully closed
// ones, Changed positions whose quantity moved. Buying price and date never
// participate in diffing: a price move without a quantity move is market
// noise, not a transaction.
type DiffResult struct {
	Added   []Transaction
	Removed []Transaction
	Changed []Transaction
}

func (r DiffResult) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changed) == 0
}

// Transactions flattens the result into a single list, added then changed
// then removed, each group in deterministic order.
func (r DiffResult) Transactions() []Transaction {
	out := make([]Transaction, 0, len(r.Added)+len(r.Changed)+len(r.Removed))
	out = append(out, r.Added...)
	out = append(out, r.Changed...)
	out = append(out, r.Removed...)
	return out
}

// ChangeTypes returns the set of distinct directions observed in the result.
func (r DiffResult) ChangeTypes() ChangeTypes {
	var c ChangeTypes
	for _, tx := range r.Transactions() {
		c = c.add(tx.Direction)
	}
	return c
}

// Diff compares a normalized snapshot against the active version. A nil
// active version means the first-ever publication: every holding is a BUY.
// Comparison is by instrument id and quantity only. Added and Changed follow
// the snapshot's holding order, Removed follows the active version's.
func Diff(active *DepotVersion, snap *NormalizedSnapshot) DiffResult {
	var result DiffResult

	if active == nil {
		for _, h := range snap.Holdings {
			result.Added = append(result.Added, Transaction{
				InstrumentID:  h.InstrumentID,
				Direction:     ChangeTypeBuy,
				QuantityDelta: h.Quantity,
			})
		}
		return result
	}

	previous := make(map[string]Decimal, len(active.Holdings))
	for _, h := range active.Holdings {
		previous[h.InstrumentID] = h.Quantity
	}

	current := make(map[string]struct{}, len(snap.Holdings))
	for _, h := range snap.Holdings {
		current[h.InstrumentID] = struct{}{}

		prevQty, held := previous[h.InstrumentID]
		if !held {
			result.Added = append(result.Added, Transaction{
				InstrumentID:  h.InstrumentID,
				Direction:     ChangeTypeBuy,
				QuantityDelta: h.Quantity,
			})
			continue
		}

		switch h.Quantity.Cmp(prevQty) {
		case 1:
			delta, _ := h.Quantity.Sub(prevQty)
			result.Changed = append(result.Changed, Transaction{
				InstrumentID:  h.InstrumentID,
				Direction:     ChangeTypeBuy,
				QuantityDelta: delta,
			})
		case -1:
			delta, _ := prevQty.Sub(h.Quantity)
			result.Changed = append(result.Changed, Transaction{
				InstrumentID:  h.InstrumentID,
				Direction:     ChangeTypeSell,
				QuantityDelta: delta,
			})
		}
	}

	for _, h := range active.Holdings {
		if _, stillHeld := current[h.InstrumentID]; !stillHeld {
			result.Removed = append(result.Removed, Transaction{
				InstrumentID:  h.InstrumentID,
				Direction:     ChangeTypeSell,
				QuantityDelta: h.Quantity,
			})
		}
	}

	return result
}
