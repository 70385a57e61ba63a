package types

import "time"

// EventKind tags the variant carried by an Event. The dispatcher drains
// the global queue strictly in this order within one processing cycle.
type EventKind int

const (
	EventPing EventKind = iota
	EventBar
	EventScreener
	EventSignal
	EventOrder
	EventFill
	EventPortfolioUpdate
)

// Rank returns the canonical processing order of the event kind; lower
// sorts first. Used by the dispatcher to order events within one drain.
func (k EventKind) Rank() int {
	return int(k)
}

func (k EventKind) String() string {
	switch k {
	case EventPing:
		return "PING"
	case EventBar:
		return "BAR"
	case EventScreener:
		return "SCREENER"
	case EventSignal:
		return "SIGNAL"
	case EventOrder:
		return "ORDER"
	case EventFill:
		return "FILL"
	case EventPortfolioUpdate:
		return "UPDATE"
	default:
		return "UNKNOWN"
	}
}

// ScreenerUpdate adds or removes tickers from the tradable universe.
type ScreenerUpdate struct {
	Time    time.Time
	Add     []string
	Remove  []string
	Source  string
}

// PortfolioUpdate is the per-portfolio snapshot emitted after a fill is
// applied.
type PortfolioUpdate struct {
	Time           time.Time
	PortfolioID    string
	AvailableCash  PortfolioCashSnapshot
	TotalEquity    string
	OpenPositions  int
}

// PortfolioCashSnapshot is a light cash view embedded in PortfolioUpdate;
// kept as its own type so callers don't need the decimal import just to
// read a formatted event.
type PortfolioCashSnapshot struct {
	Balance   string
	Reserved  string
	Available string
}

// Event is the tagged-sum-type every component exchanges through the
// global queue, in place of a dynamic dict-as-DTO. Exactly one of the
// typed fields is populated, matching Kind.
type Event struct {
	Kind            EventKind
	Time            time.Time
	Bar             *BarSet
	Screener        *ScreenerUpdate
	Signal          *Signal
	Order           *Order
	Fill            *Fill
	PortfolioUpdate *PortfolioUpdate
}

// NewBarEvent builds a BAR event.
func NewBarEvent(bars BarSet) Event {
	return Event{Kind: EventBar, Time: bars.Time, Bar: &bars}
}

// NewSignalEvent builds a SIGNAL event.
func NewSignalEvent(s Signal) Event {
	return Event{Kind: EventSignal, Time: s.Time, Signal: &s}
}

// NewOrderEvent builds an ORDER event.
func NewOrderEvent(o *Order) Event {
	return Event{Kind: EventOrder, Time: o.CreatedAt, Order: o}
}

// NewFillEvent builds a FILL event.
func NewFillEvent(f Fill) Event {
	return Event{Kind: EventFill, Time: f.Time, Fill: &f}
}

// NewPortfolioUpdateEvent builds an UPDATE event.
func NewPortfolioUpdateEvent(u PortfolioUpdate) Event {
	return Event{Kind: EventPortfolioUpdate, Time: u.Time, PortfolioUpdate: &u}
}

// NewScreenerEvent builds a SCREENER event.
func NewScreenerEvent(u ScreenerUpdate) Event {
	return Event{Kind: EventScreener, Time: u.Time, Screener: &u}
}

// NewPingEvent builds a PING event (heartbeat / wakeup with no payload).
func NewPingEvent(at time.Time) Event {
	return Event{Kind: EventPing, Time: at}
}
