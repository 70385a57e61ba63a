// Package ordermanager implements OrderManager, the hardest subsystem
// in the engine: bar-driven trigger evaluation for
// pending STOP/LIMIT orders, MARKET order timing (IMMEDIATE vs
// NEXT_BAR), and OCO cleanup once a protective order fills.
//
// Grounded on the per-account/symbol trigger-scan shape of
// internal/risk/stop_loss.go in the teacher repo (UpdatePrice returning
// the list of triggered stops); adapted here to the engine's own Order
// status machine and OrderStorage indices instead of the teacher's
// standalone StopLossManager.
package ordermanager

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/coretrade/engine/internal/feemodel"
	"github.com/coretrade/engine/internal/orderstore"
	"github.com/coretrade/engine/pkg/types"
)

// MarketExecution selects when a MARKET order in the signal path
// actually fills.
type MarketExecution int

const (
	// Immediate fills MARKET orders the instant they're created.
	Immediate MarketExecution = iota
	// NextBar defers MARKET order fills to the following bar's open.
	NextBar
)

// Executor is the capability OrderManager needs from a SimulatedExchange
// to turn a validated order into a priced fill.
type Executor interface {
	ExecuteOrderAt(order *types.Order, basePrice decimal.Decimal) types.ExecutionResult
}

// Manager evaluates pending orders against bar data for one portfolio,
// applying triggers, timing, and OCO cleanup.
type Manager struct {
	mu          sync.Mutex
	portfolioID string
	mode        MarketExecution
	storage     orderstore.OrderStorage
	executor    Executor
	feeModel    feemodel.FeeModel
	logger      *logrus.Entry

	nextBarQueue map[int64]*types.Order
}

// New returns a Manager for one portfolio, owned by its OrderHandler.
func New(portfolioID string, mode MarketExecution, storage orderstore.OrderStorage, executor Executor, feeModel feemodel.FeeModel) *Manager {
	return &Manager{
		portfolioID:  portfolioID,
		mode:         mode,
		storage:      storage,
		executor:     executor,
		feeModel:     feeModel,
		logger:       logrus.WithField("component", "ordermanager").WithField("portfolioId", portfolioID),
		nextBarQueue: make(map[int64]*types.Order),
	}
}

// Mode returns the manager's MARKET order timing mode.
func (m *Manager) Mode() MarketExecution {
	return m.mode
}

func triggered(order *types.Order, closePrice decimal.Decimal) (bool, string) {
	switch {
	case order.Type == types.OrderTypeStop && order.Action == types.ActionSell && closePrice.LessThan(order.Price):
		return true, "stop loss triggered"
	case order.Type == types.OrderTypeStop && order.Action == types.ActionBuy && closePrice.GreaterThan(order.Price):
		return true, "stop loss triggered"
	case order.Type == types.OrderTypeLimit && order.Action == types.ActionSell && closePrice.GreaterThan(order.Price):
		return true, "limit order triggered"
	case order.Type == types.OrderTypeLimit && order.Action == types.ActionBuy && closePrice.LessThan(order.Price):
		return true, "limit order triggered"
	default:
		return false, ""
	}
}

// bookFill books a full fill for order at fillPrice/commission, applies
// it to the order, persists the new state, and — if the order is now
// terminal — runs deactivation/OCO cleanup. Returns the events produced.
func (m *Manager) bookFill(order *types.Order, fillPrice, commission decimal.Decimal, at time.Time, reason string) []types.Event {
	fill := types.Fill{
		OrderID:     order.OrderID,
		Time:        at,
		Status:      types.FillStatusExecuted,
		Ticker:      order.Ticker,
		Action:      order.Action,
		Price:       fillPrice,
		Quantity:    order.RemainingQuantity(),
		Commission:  commission,
		PortfolioID: order.PortfolioID,
		Reason:      reason,
	}
	order.ApplyFill(fill, at, reason)
	m.storage.UpdateOrder(order)

	events := []types.Event{types.NewOrderEvent(order), types.NewFillEvent(fill)}

	if order.IsTerminal() {
		events = append(events, m.deactivateAndCleanup(order, at)...)
	}
	return events
}

// fillTriggered books a trigger fill (STOP/LIMIT hit on bar close),
// computing commission from the manager's own FeeModel since this path
// bypasses the exchange entirely — the fill price is pinned to the
// bar's close, with no slippage applied.
func (m *Manager) fillTriggered(order *types.Order, fillPrice decimal.Decimal, at time.Time, reason string) ([]types.Event, error) {
	commission, err := m.feeModel.CalculateFee(order.RemainingQuantity(), fillPrice, order.Action, order.Type, nil)
	if err != nil {
		return nil, fmt.Errorf("ordermanager: fee calculation: %w", err)
	}
	return m.bookFill(order, fillPrice, commission, at, reason), nil
}

// deactivateAndCleanup removes a terminal order from the active index
// and, for STOP/LIMIT orders, cancels every other active STOP/LIMIT
// order on the same (ticker, portfolioId) — the OCO pairing.
func (m *Manager) deactivateAndCleanup(order *types.Order, at time.Time) []types.Event {
	m.storage.DeactivateOrder(order.PortfolioID, order.OrderID)

	if order.Type == types.OrderTypeMarket {
		return nil
	}

	var events []types.Event
	for _, sibling := range m.storage.ActiveOrders(order.PortfolioID) {
		if sibling.Ticker != order.Ticker {
			continue
		}
		if sibling.Type != types.OrderTypeStop && sibling.Type != types.OrderTypeLimit {
			continue
		}
		if sibling.OrderID == order.OrderID {
			continue
		}
		sibling.Transition(types.OrderStatusCancelled, at, fmt.Sprintf("OCO cancelled by order %d", order.OrderID))
		m.storage.UpdateOrder(sibling)
		m.storage.DeactivateOrder(sibling.PortfolioID, sibling.OrderID)
		m.logger.WithFields(logrus.Fields{"cancelled": sibling.OrderID, "triggeredBy": order.OrderID}).Info("OCO cleanup")
		events = append(events, types.NewOrderEvent(sibling))
	}
	return events
}

// ProcessOrdersOnMarketData runs on every BarEvent: executes any
// NEXT_BAR-queued orders at the bar's open, then
// evaluates every active STOP/LIMIT order's trigger against the bar's
// close, in ascending OrderID order for deterministic tie-breaks.
func (m *Manager) ProcessOrdersOnMarketData(bar types.BarSet, at time.Time) []types.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []types.Event

	if m.mode == NextBar && len(m.nextBarQueue) > 0 {
		events = append(events, m.drainNextBarQueue(bar, at)...)
	}

	for _, order := range m.storage.ActiveOrders(m.portfolioID) {
		if order.Type != types.OrderTypeStop && order.Type != types.OrderTypeLimit {
			continue
		}
		closePrice, ok := bar.ClosePrice(order.Ticker)
		if !ok {
			continue
		}
		if order.IsTerminal() {
			continue
		}
		ok, reason := triggered(order, closePrice)
		if !ok {
			continue
		}
		fillEvents, err := m.fillTriggered(order, closePrice, at, reason)
		if err != nil {
			m.logger.WithError(err).WithField("orderId", order.OrderID).Error("failed to process triggered order")
			continue
		}
		events = append(events, fillEvents...)
	}

	return events
}

func (m *Manager) drainNextBarQueue(bar types.BarSet, at time.Time) []types.Event {
	var events []types.Event
	for orderID, order := range m.nextBarQueue {
		price, ok := bar.OpenPrice(order.Ticker)
		if !ok {
			price = order.Price
		}
		result := m.executor.ExecuteOrderAt(order, price)
		if !result.Accepted {
			m.logger.WithField("orderId", orderID).WithField("errCode", result.ErrCode).Warn("next-bar execution failed")
			delete(m.nextBarQueue, orderID)
			continue
		}
		events = append(events, m.bookFill(order, result.FillPrice, result.Commission, at, "next bar execution")...)
		delete(m.nextBarQueue, orderID)
	}
	return events
}

// ProcessMarketOrdersImmediately fills every currently active MARKET
// order right away, using its own stored price as the executor's base
// price (the executor may apply slippage to it) — called from the signal
// path when the manager's mode is Immediate.
func (m *Manager) ProcessMarketOrdersImmediately(at time.Time) []types.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []types.Event
	for _, order := range m.storage.ActiveOrders(m.portfolioID) {
		if order.Type != types.OrderTypeMarket {
			continue
		}
		result := m.executor.ExecuteOrderAt(order, order.Price)
		if !result.Accepted {
			m.logger.WithField("orderId", order.OrderID).WithField("errCode", result.ErrCode).Warn("immediate market execution failed")
			continue
		}
		events = append(events, m.bookFill(order, result.FillPrice, result.Commission, at, "market order")...)
	}
	return events
}

// SweepExpired transitions every active order whose ExpirationTime has
// passed to EXPIRED and runs OCO cleanup. Exposed as an explicit,
// caller-invoked operation rather than a background timer: nothing in
// this engine calls it implicitly, so a driver decides its own sweep
// cadence.
func (m *Manager) SweepExpired(now time.Time) []types.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []types.Event
	for _, order := range m.storage.ActiveOrders(m.portfolioID) {
		if order.ExpirationTime == nil || now.Before(*order.ExpirationTime) {
			continue
		}
		if !order.Transition(types.OrderStatusExpired, now, "expired") {
			continue
		}
		m.storage.UpdateOrder(order)
		events = append(events, types.NewOrderEvent(order))
		events = append(events, m.deactivateAndCleanup(order, now)...)
	}
	return events
}

// QueueMarketOrdersForNextBar records every currently active MARKET
// order for execution on the following bar — called from the signal
// path when the manager's mode is NextBar.
func (m *Manager) QueueMarketOrdersForNextBar() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.storage.ActiveOrders(m.portfolioID) {
		if order.Type != types.OrderTypeMarket {
			continue
		}
		m.nextBarQueue[order.OrderID] = order
	}
}
