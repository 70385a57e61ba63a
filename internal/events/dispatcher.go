// Package events implements the engine's global event queue and
// EventDispatcher: draining events one at a time in canonical order
// (PING -> BAR -> SCREENER -> SIGNAL -> ORDER -> FILL -> UPDATE),
// fanning BAR events out to the universe, every portfolio's
// mark-to-market and order-trigger evaluation, and every registered
// strategy.
package events

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coretrade/engine/internal/ordervalidate"
	"github.com/coretrade/engine/pkg/types"
)

// OrderHandler is the capability Dispatcher needs to turn a SIGNAL event
// into orders. Satisfied by *orderhandler.Handler.
type OrderHandler interface {
	HandleSignal(sig *types.Signal, portfolio ordervalidate.PortfolioState, at time.Time) []types.Event
}

// PortfolioHandler is the capability Dispatcher needs to apply a FILL
// event. Satisfied by *portfoliohandler.Handler.
type PortfolioHandler interface {
	HandleFill(fill types.Fill) (types.Event, error)
	MarkToMarket(bars types.BarSet)
}

// OrderMarketProcessor runs bar-driven trigger evaluation for one
// portfolio's pending orders. Satisfied by *ordermanager.Manager.
type OrderMarketProcessor interface {
	ProcessOrdersOnMarketData(bar types.BarSet, at time.Time) []types.Event
}

// StrategyRunner produces signals from a bar and the current universe.
// Defined here (rather than imported from internal/strategyhost) so this
// package has no dependency on strategy implementations.
type StrategyRunner interface {
	OnBar(bars types.BarSet, universe *Universe) []types.Signal
}

// Sink receives every event as it's dispatched, e.g. for EventStore
// persistence or a live NATS mirror. Optional — nil is a valid Sink.
type Sink interface {
	Record(e types.Event)
}

// portfolioBinding pairs one portfolio's order handler/manager with the
// PortfolioState snapshot function OrderHandler.HandleSignal needs for
// validation; wired per-portfolio by the caller at registration time.
type portfolioBinding struct {
	portfolioID   string
	orderHandler  OrderHandler
	orderManager  OrderMarketProcessor
	stateSnapshot func() ordervalidate.PortfolioState
}

// Dispatcher drains the global Queue in canonical order, wiring BAR
// events to the universe/portfolios/strategies and routing the signals
// and fills they produce back onto the same queue for the same drain
// cycle.
type Dispatcher struct {
	queue            *Queue
	universe         *Universe
	portfolios       map[string]*portfolioBinding
	portfolioHandler PortfolioHandler
	strategies       []StrategyRunner
	sink             Sink
	logger           *logrus.Entry
}

// NewDispatcher returns a Dispatcher over queue, universe, and the
// shared PortfolioHandler that applies fills for every portfolio.
func NewDispatcher(queue *Queue, universe *Universe, portfolioHandler PortfolioHandler) *Dispatcher {
	return &Dispatcher{
		queue:            queue,
		universe:         universe,
		portfolios:       make(map[string]*portfolioBinding),
		portfolioHandler: portfolioHandler,
		logger:           logrus.WithField("component", "dispatcher"),
	}
}

// RegisterPortfolio wires one portfolio's OrderHandler and OrderManager
// into the dispatcher's BAR/SIGNAL handling.
func (d *Dispatcher) RegisterPortfolio(portfolioID string, orderHandler OrderHandler, orderManager OrderMarketProcessor, stateSnapshot func() ordervalidate.PortfolioState) {
	d.portfolios[portfolioID] = &portfolioBinding{
		portfolioID:   portfolioID,
		orderHandler:  orderHandler,
		orderManager:  orderManager,
		stateSnapshot: stateSnapshot,
	}
}

// RegisterStrategy adds a strategy invoked on every BAR event.
func (d *Dispatcher) RegisterStrategy(s StrategyRunner) {
	d.strategies = append(d.strategies, s)
}

// SetSink installs a Sink that observes every dispatched event.
func (d *Dispatcher) SetSink(sink Sink) {
	d.sink = sink
}

// Queue returns the dispatcher's underlying event queue, for producers
// (PriceFeed, screener, live notifier threads) to push onto.
func (d *Dispatcher) Queue() *Queue {
	return d.queue
}

// Universe returns the dispatcher's shared tradable-ticker set.
func (d *Dispatcher) Universe() *Universe {
	return d.universe
}

// DrainToEmpty processes events until the queue is empty — the backtest
// driver's per-bar call, draining the global queue to completion before
// pulling the next bar.
func (d *Dispatcher) DrainToEmpty() {
	for {
		e, ok := d.queue.Pop()
		if !ok {
			return
		}
		d.dispatch(e)
	}
}

// Run drains the queue continuously, blocking on PopWait between events,
// until stop is closed — the live path's single event-processing thread.
func (d *Dispatcher) Run(stop <-chan struct{}) {
	for {
		e, ok := d.queue.PopWait(stop)
		if !ok {
			return
		}
		d.dispatch(e)
	}
}

func (d *Dispatcher) dispatch(e types.Event) {
	if d.sink != nil {
		d.sink.Record(e)
	}

	switch e.Kind {
	case types.EventPing:
		// heartbeat only; nothing to do.
	case types.EventBar:
		d.handleBar(*e.Bar)
	case types.EventScreener:
		d.handleScreener(*e.Screener)
	case types.EventSignal:
		d.handleSignal(*e.Signal)
	case types.EventOrder:
		// order lifecycle events are observational here; storage was
		// already updated by whichever component emitted this event.
	case types.EventFill:
		d.handleFill(*e.Fill)
	case types.EventPortfolioUpdate:
		// terminal in the drain order; nothing downstream consumes it.
	}
}

func (d *Dispatcher) handleBar(bars types.BarSet) {
	for ticker := range bars.Bars {
		d.universe.Add(ticker)
	}
	d.portfolioHandler.MarkToMarket(bars)

	for _, binding := range d.portfolios {
		for _, e := range binding.orderManager.ProcessOrdersOnMarketData(bars, bars.Time) {
			d.queue.Push(e)
		}
	}

	for _, strategy := range d.strategies {
		for _, sig := range strategy.OnBar(bars, d.universe) {
			d.queue.Push(types.NewSignalEvent(sig))
		}
	}
}

func (d *Dispatcher) handleScreener(update types.ScreenerUpdate) {
	d.universe.Add(update.Add...)
	d.universe.Remove(update.Remove...)
}

func (d *Dispatcher) handleSignal(sig types.Signal) {
	binding, ok := d.portfolios[sig.PortfolioID]
	if !ok {
		d.logger.WithField("portfolioId", sig.PortfolioID).Warn("signal for unregistered portfolio dropped")
		return
	}
	state := binding.stateSnapshot()
	for _, e := range binding.orderHandler.HandleSignal(&sig, state, sig.Time) {
		d.queue.Push(e)
	}
}

func (d *Dispatcher) handleFill(fill types.Fill) {
	update, err := d.portfolioHandler.HandleFill(fill)
	if err != nil {
		d.logger.WithError(err).WithField("portfolioId", fill.PortfolioID).Error("failed to apply fill")
		return
	}
	d.queue.Push(update)
}
