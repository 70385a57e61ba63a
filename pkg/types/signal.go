package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is a strategy's trading intent, not yet an order. StrategyHost
// creates it; the validation pipeline sets Verified; OrderHandler
// destroys it once the corresponding orders exist.
type Signal struct {
	Time             time.Time
	OrderType        string // MARKET | STOP | LIMIT
	Ticker           string
	Action           string // BUY | SELL
	Price            decimal.Decimal
	Quantity         decimal.Decimal
	StopLoss         decimal.Decimal // zero means "no stop"
	TakeProfit       decimal.Decimal // zero means "no take-profit"
	StrategyID       string
	PortfolioID      string
	Verified         bool
	StrategySettings map[string]interface{}
}

// HasStopLoss reports whether the signal carries a protective stop.
func (s Signal) HasStopLoss() bool {
	return s.StopLoss.IsPositive()
}

// HasTakeProfit reports whether the signal carries a take-profit target.
func (s Signal) HasTakeProfit() bool {
	return s.TakeProfit.IsPositive()
}

// OppositeAction returns the inverse of a BUY/SELL action, used to build
// the paired protective orders (stop is a SELL against a BUY entry, etc).
func OppositeAction(action string) string {
	if action == ActionBuy {
		return ActionSell
	}
	return ActionBuy
}
