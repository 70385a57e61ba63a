package events

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretrade/engine/internal/ordervalidate"
	"github.com/coretrade/engine/pkg/types"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

type fakeOrderHandler struct {
	calls []string
	out   []types.Event
}

func (f *fakeOrderHandler) HandleSignal(sig *types.Signal, portfolio ordervalidate.PortfolioState, at time.Time) []types.Event {
	f.calls = append(f.calls, sig.Ticker)
	return f.out
}

type fakeOrderManager struct {
	out []types.Event
}

func (f *fakeOrderManager) ProcessOrdersOnMarketData(bar types.BarSet, at time.Time) []types.Event {
	return f.out
}

type fakePortfolioHandler struct {
	fills []types.Fill
}

func (f *fakePortfolioHandler) HandleFill(fill types.Fill) (types.Event, error) {
	f.fills = append(f.fills, fill)
	return types.NewPortfolioUpdateEvent(types.PortfolioUpdate{PortfolioID: fill.PortfolioID, Time: fill.Time}), nil
}

func (f *fakePortfolioHandler) MarkToMarket(bars types.BarSet) {}

type fakeStrategy struct {
	signals []types.Signal
}

func (f *fakeStrategy) OnBar(bars types.BarSet, universe *Universe) []types.Signal {
	return f.signals
}

type recordingSink struct {
	kinds []types.EventKind
}

func (r *recordingSink) Record(e types.Event) {
	r.kinds = append(r.kinds, e.Kind)
}

func TestDispatcher_BarFansOutToUniversePortfoliosAndStrategies(t *testing.T) {
	queue := NewQueue()
	universe := NewUniverse()
	ph := &fakePortfolioHandler{}
	d := NewDispatcher(queue, universe, ph)

	oh := &fakeOrderHandler{}
	om := &fakeOrderManager{}
	d.RegisterPortfolio("p1", oh, om, func() ordervalidate.PortfolioState { return ordervalidate.PortfolioState{} })

	strategy := &fakeStrategy{signals: []types.Signal{{Ticker: "BTCUSDT", PortfolioID: "p1", Time: time.Now()}}}
	d.RegisterStrategy(strategy)

	sink := &recordingSink{}
	d.SetSink(sink)

	now := time.Now()
	bars := types.BarSet{Time: now, Bars: map[string]types.Bar{"BTCUSDT": {Ticker: "BTCUSDT", Close: dec("100"), Time: now}}}
	queue.Push(types.NewBarEvent(bars))

	d.DrainToEmpty()

	assert.True(t, universe.Contains("BTCUSDT"))
	assert.Equal(t, []string{"BTCUSDT"}, oh.calls)
	assert.Contains(t, sink.kinds, types.EventBar)
	assert.Contains(t, sink.kinds, types.EventSignal)
}

func TestDispatcher_SignalUnregisteredPortfolioDropped(t *testing.T) {
	queue := NewQueue()
	universe := NewUniverse()
	ph := &fakePortfolioHandler{}
	d := NewDispatcher(queue, universe, ph)

	queue.Push(types.NewSignalEvent(types.Signal{Ticker: "BTC", PortfolioID: "unknown", Time: time.Now()}))
	require.NotPanics(t, d.DrainToEmpty)
}

func TestDispatcher_FillRoutesToPortfolioHandlerAndEmitsUpdate(t *testing.T) {
	queue := NewQueue()
	universe := NewUniverse()
	ph := &fakePortfolioHandler{}
	d := NewDispatcher(queue, universe, ph)

	sink := &recordingSink{}
	d.SetSink(sink)

	queue.Push(types.NewFillEvent(types.Fill{PortfolioID: "p1", Ticker: "BTC", Time: time.Now()}))
	d.DrainToEmpty()

	require.Len(t, ph.fills, 1)
	assert.Contains(t, sink.kinds, types.EventPortfolioUpdate)
}

func TestQueue_DrainsInCanonicalOrder(t *testing.T) {
	queue := NewQueue()
	now := time.Now()
	queue.Push(types.NewFillEvent(types.Fill{Time: now}))
	queue.Push(types.NewBarEvent(types.BarSet{Time: now, Bars: map[string]types.Bar{}}))
	queue.Push(types.NewPingEvent(now))
	queue.Push(types.NewSignalEvent(types.Signal{Time: now}))

	var order []types.EventKind
	for {
		e, ok := queue.Pop()
		if !ok {
			break
		}
		order = append(order, e.Kind)
	}
	assert.Equal(t, []types.EventKind{types.EventPing, types.EventBar, types.EventSignal, types.EventFill}, order)
}
