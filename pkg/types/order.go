package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// StateChange records one transition in an order's lifecycle for audit.
type StateChange struct {
	From   string
	To     string
	Time   time.Time
	Reason string
}

// Order is the engine's persistent, validated commitment to trade.
// Invariants:
//   - 0 <= FilledQuantity <= Quantity
//   - Status == FILLED iff FilledQuantity == Quantity
//   - Status == PARTIALLY_FILLED iff 0 < FilledQuantity < Quantity
//   - no StateChanges are appended once Status is terminal
type Order struct {
	OrderID              int64
	ClientOrderID        string
	Type                 string // MARKET | STOP | LIMIT
	Status               string
	Ticker               string
	Action               string // BUY | SELL
	Price                decimal.Decimal
	Quantity             decimal.Decimal
	FilledQuantity       decimal.Decimal
	Exchange             string
	StrategyID           string
	PortfolioID          string
	CreatedAt            time.Time
	ExpirationTime        *time.Time
	ModificationCount    int
	LastModificationTime *time.Time
	RejectionReason      string
	StateChanges         []StateChange
	Fills                []Fill

	// OCOGroupID is a stored label for a group of linked orders; nothing
	// in the engine sets it, and OCO cleanup pairs orders by
	// (Ticker, PortfolioID) instead.
	OCOGroupID string
}

// IsActive reports whether the order is still in the active index
// (PENDING or PARTIALLY_FILLED).
func (o *Order) IsActive() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusPartiallyFilled
}

// IsTerminal reports whether the order has reached a terminal status.
func (o *Order) IsTerminal() bool {
	return IsTerminalStatus(o.Status)
}

// RemainingQuantity returns Quantity - FilledQuantity.
func (o *Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// validTransitions enumerates the legal order status graph.
var validTransitions = map[string]map[string]bool{
	OrderStatusPending: {
		OrderStatusPartiallyFilled: true,
		OrderStatusFilled:          true,
		OrderStatusCancelled:       true,
		OrderStatusRejected:        true,
		OrderStatusExpired:         true,
	},
	OrderStatusPartiallyFilled: {
		OrderStatusFilled:    true,
		OrderStatusCancelled: true,
		OrderStatusExpired:   true,
	},
}

// CanTransition reports whether moving from `from` to `to` is a legal
// order-status transition. Terminal states never transition further.
func CanTransition(from, to string) bool {
	if IsTerminalStatus(from) {
		return false
	}
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// Transition appends a StateChange and updates Status, rejecting any
// transition not permitted by the order status machine. Terminal orders
// never accept a further StateChange.
func (o *Order) Transition(to string, at time.Time, reason string) bool {
	if !CanTransition(o.Status, to) {
		return false
	}
	o.StateChanges = append(o.StateChanges, StateChange{From: o.Status, To: to, Time: at, Reason: reason})
	o.Status = to
	return true
}

// ApplyFill records a fill against the order, advancing FilledQuantity
// and transitioning to PARTIALLY_FILLED or FILLED as appropriate.
func (o *Order) ApplyFill(fill Fill, at time.Time, reason string) bool {
	if o.IsTerminal() {
		return false
	}
	newFilled := o.FilledQuantity.Add(fill.Quantity)
	if newFilled.GreaterThan(o.Quantity) {
		newFilled = o.Quantity
	}
	o.FilledQuantity = newFilled
	o.Fills = append(o.Fills, fill)

	if o.FilledQuantity.Equal(o.Quantity) {
		return o.Transition(OrderStatusFilled, at, reason)
	}
	if o.FilledQuantity.IsPositive() {
		return o.Transition(OrderStatusPartiallyFilled, at, reason)
	}
	return true
}
