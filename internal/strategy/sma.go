// Package strategy provides example Strategy implementations that plug
// into strategyhost.Host. Adapted from the teacher's
// internal/backtest/strategy.go SimpleMovingAverageStrategy and
// MomentumStrategy, generalized from a hardcoded symbol list and
// MarketState ticker/orderbook lookups to this engine's BarSet and
// events.Universe.
package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/coretrade/engine/internal/events"
	"github.com/coretrade/engine/pkg/types"
)

// SMACrossover emits a BUY when the short-period moving average crosses
// above the long-period average, and a SELL when it crosses back below,
// one position per ticker in the universe at a time. Position sizing is
// a fixed quantity per ticker: the Strategy interface is a pure
// onBar(BarEvent) callable with no portfolio visibility, so
// cash-aware sizing (the teacher's calculatePositionSize) belongs to a
// downstream sizing hook, not the strategy itself.
type SMACrossover struct {
	id           string
	shortPeriod  int
	longPeriod   int
	quantity     decimal.Decimal
	portfolioID  string
	priceHistory map[string][]decimal.Decimal
	inPosition   map[string]bool
}

// NewSMACrossover returns a strategy comparing an average over
// shortPeriod bars against one over longPeriod bars, trading quantity
// units per signal.
func NewSMACrossover(id string, shortPeriod, longPeriod int, quantity decimal.Decimal) *SMACrossover {
	return &SMACrossover{
		id:           id,
		shortPeriod:  shortPeriod,
		longPeriod:   longPeriod,
		quantity:     quantity,
		priceHistory: make(map[string][]decimal.Decimal),
		inPosition:   make(map[string]bool),
	}
}

// ID implements strategyhost.Strategy.
func (s *SMACrossover) ID() string { return s.id }

// Initialize implements strategyhost.Strategy.
func (s *SMACrossover) Initialize(portfolioID string) error {
	s.portfolioID = portfolioID
	return nil
}

// OnBar implements strategyhost.Strategy: it tracks one price history per
// ticker currently in the universe and reacts to an SMA crossover.
func (s *SMACrossover) OnBar(bars types.BarSet, universe *events.Universe) []types.Signal {
	var signals []types.Signal

	for _, ticker := range universe.Tickers() {
		bar, ok := bars.Bars[ticker]
		if !ok {
			continue
		}
		price := bar.Close

		history := append(s.priceHistory[ticker], price)
		if max := s.longPeriod * 2; len(history) > max {
			history = history[len(history)-max:]
		}
		s.priceHistory[ticker] = history

		if len(history) < s.longPeriod {
			continue
		}

		shortSMA := sma(history, s.shortPeriod)
		longSMA := sma(history, s.longPeriod)
		hasPosition := s.inPosition[ticker]

		switch {
		case shortSMA.GreaterThan(longSMA) && !hasPosition:
			signals = append(signals, types.Signal{
				Ticker:    ticker,
				Action:    types.ActionBuy,
				OrderType: types.OrderTypeMarket,
				Price:     price,
				Quantity:  s.quantity,
			})
			s.inPosition[ticker] = true
		case longSMA.GreaterThan(shortSMA) && hasPosition:
			signals = append(signals, types.Signal{
				Ticker:    ticker,
				Action:    types.ActionSell,
				OrderType: types.OrderTypeMarket,
				Price:     price,
				Quantity:  s.quantity,
			})
			s.inPosition[ticker] = false
		}
	}

	return signals
}

// Finalize implements strategyhost.Strategy.
func (s *SMACrossover) Finalize() {
	s.priceHistory = nil
	s.inPosition = nil
}

func sma(prices []decimal.Decimal, period int) decimal.Decimal {
	if len(prices) < period {
		return decimal.Zero
	}
	sum := decimal.Zero
	start := len(prices) - period
	for _, p := range prices[start:] {
		sum = sum.Add(p)
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}
