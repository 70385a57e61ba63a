package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioConfig carries the static limits a portfolio is created
// with: starting cash and the risk caps Portfolio.CheckTradeLimits
// checks a prospective trade against.
type PortfolioConfig struct {
	PortfolioID          string
	InitialCash          decimal.Decimal
	Exchange             string
	MaxPositionValue     decimal.Decimal
	MaxPortfolioValue    decimal.Decimal
	MaxOpenPositions     int
	MaxConcentrationPct  decimal.Decimal // largest position value / totalEquity, e.g. 0.25
	DailyLossLimitPct    decimal.Decimal // soft: tracked, not enforced
	DrawdownLimitPct     decimal.Decimal // soft: tracked, not enforced
	MaxTransactionCount  int
}

// PortfolioSnapshot is the read-only, point-in-time view of a portfolio's
// aggregate state — the DTO handed to strategies, reporting, and the
// PortfolioUpdate event. TotalEquity/TotalMarketValue/TotalUnrealisedPnL
// are computed by internal/portfolio.Portfolio.Snapshot, never mutated
// directly, so they can't drift from the underlying managers.
type PortfolioSnapshot struct {
	PortfolioID        string
	State              string
	Time               time.Time
	CashBalance        decimal.Decimal
	CashReserved       decimal.Decimal
	CashAvailable      decimal.Decimal
	TotalMarketValue   decimal.Decimal
	TotalEquity        decimal.Decimal
	TotalUnrealisedPnL decimal.Decimal
	TotalRealisedPnL   decimal.Decimal
	OpenPositions      int
}

// HealthMetrics tracks the portfolio's soft risk limits: daily loss and
// drawdown are monitored but never block a trade on their own —
// callers decide what to do with a breach.
type HealthMetrics struct {
	PeakEquity          decimal.Decimal
	CurrentDrawdownPct  decimal.Decimal
	DailyStartEquity    decimal.Decimal
	DailyPnLPct         decimal.Decimal
	DrawdownBreached    bool
	DailyLossBreached   bool
}
