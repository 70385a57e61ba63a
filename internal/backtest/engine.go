package backtest

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/coretrade/engine/internal/events"
	"github.com/coretrade/engine/internal/feed"
	"github.com/coretrade/engine/internal/portfoliohandler"
	"github.com/coretrade/engine/pkg/types"
)

// Engine drives a backtest run: strictly single-threaded and
// cooperative, never reading the next bar until every downstream event
// from the current one has settled. Adapted from the teacher's
// BacktestEngine.RunStrategy loop: the teacher ticked a wall-clock
// interval and pulled events out of a time-range index; this engine
// instead pulls one BarSet at a time from a feed.PriceFeed and drains
// the shared events.Dispatcher to completion before advancing, so a
// signal's downstream fill and portfolio update are fully settled
// before the next bar is read.
type Engine struct {
	feed       feed.PriceFeed
	dispatcher *events.Dispatcher
	portfolios *portfoliohandler.Handler
	eventStore *EventStore
	logger     *logrus.Entry

	barsProcessed int
	snapshots     []types.PortfolioSnapshot
}

// NewEngine returns an Engine that reads bars from f, dispatches them
// through d, and records per-bar portfolio snapshots via h. eventStore
// may be nil when the run doesn't need a persisted event log.
func NewEngine(f feed.PriceFeed, d *events.Dispatcher, h *portfoliohandler.Handler, eventStore *EventStore) *Engine {
	if eventStore != nil {
		d.SetSink(eventStore)
	}
	return &Engine{
		feed:       f,
		dispatcher: d,
		portfolios: h,
		eventStore: eventStore,
		logger:     logrus.WithField("component", "backtest.engine"),
	}
}

// Run replays the feed to exhaustion. For every BarSet it pushes a
// BarEvent and drains the dispatcher's queue to empty before reading
// the next bar, then records a snapshot of every portfolio for the
// performance analyzer.
func (e *Engine) Run() (*Report, error) {
	defer e.feed.Close()
	if e.eventStore != nil {
		defer e.eventStore.Close()
	}

	for {
		bars, ok := e.feed.Next()
		if !ok {
			break
		}

		e.dispatcher.Queue().Push(types.NewBarEvent(bars))
		e.dispatcher.DrainToEmpty()
		e.barsProcessed++

		for _, snap := range e.portfolios.Snapshots(bars.Time) {
			e.snapshots = append(e.snapshots, snap)
		}
	}

	e.logger.WithField("bars", e.barsProcessed).Info("backtest run complete")
	if e.barsProcessed == 0 {
		return nil, fmt.Errorf("backtest: feed yielded no bars")
	}
	return NewReport(e.snapshots, e.portfolios.AllTransactions()), nil
}

// Snapshots returns every per-bar, per-portfolio snapshot recorded
// during Run, in the order they were taken.
func (e *Engine) Snapshots() []types.PortfolioSnapshot {
	return e.snapshots
}
