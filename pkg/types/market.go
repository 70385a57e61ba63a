package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is an immutable OHLCV record for one ticker over one period.
// Produced by a PriceFeed; never mutated once constructed.
type Bar struct {
	Ticker    string
	Time      time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// BarSet is the payload of a BAR event: every ticker's bar for one time step.
type BarSet struct {
	Time time.Time
	Bars map[string]Bar
}

// OpenPrice returns the open of ticker in this bar set, and whether it was present.
func (b BarSet) OpenPrice(ticker string) (decimal.Decimal, bool) {
	bar, ok := b.Bars[ticker]
	if !ok {
		return decimal.Zero, false
	}
	return bar.Open, true
}

// ClosePrice returns the close of ticker in this bar set, and whether it was present.
func (b BarSet) ClosePrice(ticker string) (decimal.Decimal, bool) {
	bar, ok := b.Bars[ticker]
	if !ok {
		return decimal.Zero, false
	}
	return bar.Close, true
}
