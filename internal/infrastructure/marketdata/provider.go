package marketdata

import (
	"context"

	"github.com/shopspring/decimal"
)

// Quote is one intraday price observation for an instrument.
type Quote struct {
	InstrumentID string
	Price        decimal.Decimal
	Currency     string
	Time         string
}

// QuoteProvider is the pull-based boundary to the price-fetching
// collaborator. It only ever consumes instrument identifiers published by the
// versioning store; its schedule and failures never influence the version
// log.
type QuoteProvider interface {
	GetQuote(ctx context.Context, instrumentID string) (*Quote, error)
}
