package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/coretrade/engine/internal/events"
	"github.com/coretrade/engine/pkg/types"
)

// Momentum emits a BUY with an attached stop-loss and take-profit
// whenever a ticker's price has moved more than threshold over lookback
// bars, and closes the position once either bound is hit. Adapted from
// the teacher's internal/backtest/strategy.go MomentumStrategy.
type Momentum struct {
	id           string
	lookback     int
	threshold    decimal.Decimal
	quantity     decimal.Decimal
	stopLossPct  decimal.Decimal
	takeProfitPct decimal.Decimal
	portfolioID  string
	priceHistory map[string][]decimal.Decimal
	open         map[string]openPosition
}

type openPosition struct {
	stopLoss   decimal.Decimal
	takeProfit decimal.Decimal
}

// NewMomentum returns a momentum strategy that enters when price moves
// more than threshold (e.g. 0.03 for 3%) over lookback bars, trading
// quantity units with a 2% stop loss and 5% take profit.
func NewMomentum(id string, lookback int, threshold, quantity decimal.Decimal) *Momentum {
	return &Momentum{
		id:            id,
		lookback:      lookback,
		threshold:     threshold,
		quantity:      quantity,
		stopLossPct:   decimal.NewFromFloat(0.02),
		takeProfitPct: decimal.NewFromFloat(0.05),
		priceHistory:  make(map[string][]decimal.Decimal),
		open:          make(map[string]openPosition),
	}
}

// ID implements strategyhost.Strategy.
func (m *Momentum) ID() string { return m.id }

// Initialize implements strategyhost.Strategy.
func (m *Momentum) Initialize(portfolioID string) error {
	m.portfolioID = portfolioID
	return nil
}

// OnBar implements strategyhost.Strategy.
func (m *Momentum) OnBar(bars types.BarSet, universe *events.Universe) []types.Signal {
	var signals []types.Signal

	for _, ticker := range universe.Tickers() {
		bar, ok := bars.Bars[ticker]
		if !ok {
			continue
		}
		price := bar.Close

		history := append(m.priceHistory[ticker], price)
		if max := m.lookback * 2; len(history) > max {
			history = history[len(history)-max:]
		}
		m.priceHistory[ticker] = history

		if pos, inPosition := m.open[ticker]; inPosition {
			if price.LessThanOrEqual(pos.stopLoss) || price.GreaterThanOrEqual(pos.takeProfit) {
				signals = append(signals, types.Signal{
					Ticker:    ticker,
					Action:    types.ActionSell,
					OrderType: types.OrderTypeMarket,
					Price:     price,
					Quantity:  m.quantity,
				})
				delete(m.open, ticker)
			}
			continue
		}

		if len(history) < m.lookback {
			continue
		}
		oldPrice := history[len(history)-m.lookback]
		if oldPrice.IsZero() {
			continue
		}
		momentum := price.Sub(oldPrice).Div(oldPrice)
		if momentum.GreaterThan(m.threshold) {
			stopLoss := price.Mul(decimal.NewFromInt(1).Sub(m.stopLossPct))
			takeProfit := price.Mul(decimal.NewFromInt(1).Add(m.takeProfitPct))
			signals = append(signals, types.Signal{
				Ticker:     ticker,
				Action:     types.ActionBuy,
				OrderType:  types.OrderTypeMarket,
				Price:      price,
				Quantity:   m.quantity,
				StopLoss:   stopLoss,
				TakeProfit: takeProfit,
			})
			m.open[ticker] = openPosition{stopLoss: stopLoss, takeProfit: takeProfit}
		}
	}

	return signals
}

// Finalize implements strategyhost.Strategy.
func (m *Momentum) Finalize() {
	m.priceHistory = nil
	m.open = nil
}
