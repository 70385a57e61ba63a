// Package strategyhost implements StrategyHost: the registry that
// invokes user strategies on every bar and stamps the signals they
// produce with the bookkeeping fields (time, portfolio, strategy id)
// OrderValidator and OrderHandler require.
//
// Grounded on the teacher's TradingStrategy interface in
// internal/backtest/strategy.go (Initialize/GenerateSignals/Finalize),
// adapted from a MarketState/Portfolio-pointer signature to this
// engine's BarSet/Universe event-driven one.
package strategyhost

import (
	"github.com/sirupsen/logrus"

	"github.com/coretrade/engine/internal/events"
	"github.com/coretrade/engine/pkg/types"
)

// Strategy is the interface user trading logic implements. OnBar is
// called once per bar, per registered strategy, with the tradable
// universe as the dispatcher holds it while handling the BAR event:
// every ticker in the bar has been added, and SCREENER events, which
// drain after BAR events, have not yet been applied for this bar.
type Strategy interface {
	ID() string
	Initialize(portfolioID string) error
	OnBar(bars types.BarSet, universe *events.Universe) []types.Signal
	Finalize()
}

// Host runs a set of strategies for one portfolio, implementing
// events.StrategyRunner so it can be registered directly on a Dispatcher.
type Host struct {
	portfolioID string
	strategies  []Strategy
	logger      *logrus.Entry
}

// New returns a Host for portfolioID with no strategies registered yet.
func New(portfolioID string) *Host {
	return &Host{
		portfolioID: portfolioID,
		logger:      logrus.WithField("component", "strategyhost").WithField("portfolioId", portfolioID),
	}
}

// Register adds a strategy and initializes it for this host's portfolio.
func (h *Host) Register(s Strategy) error {
	if err := s.Initialize(h.portfolioID); err != nil {
		return err
	}
	h.strategies = append(h.strategies, s)
	return nil
}

// OnBar runs every registered strategy against the bar and universe,
// stamping each returned signal with its producing strategy, portfolio,
// and the bar's time before handing it back to the dispatcher.
func (h *Host) OnBar(bars types.BarSet, universe *events.Universe) []types.Signal {
	var out []types.Signal
	for _, s := range h.strategies {
		signals := s.OnBar(bars, universe)
		for i := range signals {
			signals[i].StrategyID = s.ID()
			signals[i].PortfolioID = h.portfolioID
			if signals[i].Time.IsZero() {
				signals[i].Time = bars.Time
			}
		}
		out = append(out, signals...)
	}
	return out
}

// Finalize runs every registered strategy's cleanup hook, e.g. at the
// end of a backtest run.
func (h *Host) Finalize() {
	for _, s := range h.strategies {
		s.Finalize()
	}
}
