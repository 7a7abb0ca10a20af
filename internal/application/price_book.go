package application

import (
	"sync"

	"github.com/jsattler/depot-tracker/internal/domain"
)

// PriceBook holds the latest known price per instrument. The price updater
// writes it, the weekly snapshot valuation reads it. Prices are advisory:
// missing entries fall back to buying prices during valuation.
type PriceBook struct {
	mu     sync.RWMutex
	prices map[string]domain.Decimal
}

func NewPriceBook() *PriceBook {
	return &PriceBook{prices: make(map[string]domain.Decimal)}
}

func (b *PriceBook) Set(instrumentID string, price domain.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[instrumentID] = price
}

// PriceFor implements domain.PriceSource.
func (b *PriceBook) PriceFor(instrumentID string) (domain.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	price, ok := b.prices[instrumentID]
	return price, ok
}

func (b *PriceBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.prices)
}
