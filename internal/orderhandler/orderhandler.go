// Package orderhandler implements OrderHandler: turns a validated
// Signal into its main order plus any paired STOP/LIMIT
// protective orders, and exposes the order-book query/mutation surface
// strategies and reporting use.
package orderhandler

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/coretrade/engine/internal/idgen"
	"github.com/coretrade/engine/internal/ordermanager"
	"github.com/coretrade/engine/internal/orderstore"
	"github.com/coretrade/engine/internal/ordervalidate"
	"github.com/coretrade/engine/pkg/types"
)

// Handler wires one portfolio's validator, order manager, and storage
// together behind the Signal -> Order(s) workflow.
type Handler struct {
	mu          sync.Mutex
	portfolioID string
	ids         *idgen.IDGen
	validator   *ordervalidate.Validator
	manager     *ordermanager.Manager
	storage     orderstore.OrderStorage
	logger      *logrus.Entry
}

// New returns a Handler for one portfolio.
func New(portfolioID string, ids *idgen.IDGen, validator *ordervalidate.Validator, manager *ordermanager.Manager, storage orderstore.OrderStorage) *Handler {
	return &Handler{
		portfolioID: portfolioID,
		ids:         ids,
		validator:   validator,
		manager:     manager,
		storage:     storage,
		logger:      logrus.WithField("component", "orderhandler").WithField("portfolioId", portfolioID),
	}
}

func (h *Handler) newOrder(orderType, ticker, action string, price, qty decimal.Decimal, at time.Time, strategyID string) *types.Order {
	return &types.Order{
		OrderID:       h.ids.NextOrderID(),
		ClientOrderID: idgen.NewClientOrderID(),
		Type:          orderType,
		Status:        types.OrderStatusPending,
		Ticker:        ticker,
		Action:        action,
		Price:         price,
		Quantity:      qty,
		PortfolioID:   h.portfolioID,
		StrategyID:    strategyID,
		CreatedAt:     at,
	}
}

// HandleSignal runs the validation pipeline and, on success, creates the
// paired protective orders (if any) then the main order, finally kicking
// off MARKET execution per the order manager's timing mode.
func (h *Handler) HandleSignal(sig *types.Signal, portfolio ordervalidate.PortfolioState, at time.Time) []types.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := h.validator.ValidateSignalPipeline(sig, portfolio)
	if !result.Success {
		h.logger.WithField("summary", result.Summary).Warn("signal rejected by validation pipeline")
		return nil
	}

	var events []types.Event

	if sig.HasStopLoss() {
		stop := h.newOrder(types.OrderTypeStop, sig.Ticker, types.OppositeAction(sig.Action), sig.StopLoss, sig.Quantity, at, sig.StrategyID)
		h.storage.SaveOrder(stop)
		events = append(events, types.NewOrderEvent(stop))
	}
	if sig.HasTakeProfit() {
		takeProfit := h.newOrder(types.OrderTypeLimit, sig.Ticker, types.OppositeAction(sig.Action), sig.TakeProfit, sig.Quantity, at, sig.StrategyID)
		h.storage.SaveOrder(takeProfit)
		events = append(events, types.NewOrderEvent(takeProfit))
	}

	main := h.newOrder(sig.OrderType, sig.Ticker, sig.Action, sig.Price, sig.Quantity, at, sig.StrategyID)
	h.storage.SaveOrder(main)
	events = append(events, types.NewOrderEvent(main))

	if main.Type == types.OrderTypeMarket {
		switch h.manager.Mode() {
		case ordermanager.Immediate:
			events = append(events, h.manager.ProcessMarketOrdersImmediately(at)...)
		case ordermanager.NextBar:
			h.manager.QueueMarketOrdersForNextBar()
		}
	}

	return events
}

// ModifyOrder updates an active order's price and/or quantity after
// re-validating the modification.
func (h *Handler) ModifyOrder(orderID int64, newPrice, newQty *decimal.Decimal, at time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	order, ok := h.storage.GetOrder(h.portfolioID, orderID)
	if !ok {
		return fmt.Errorf("orderhandler: order %d not found", orderID)
	}
	vr := h.validator.ValidateOrderModification(order, newPrice, newQty)
	if !vr.Success {
		return fmt.Errorf("orderhandler: modification rejected: %s", vr.Summary)
	}
	if newPrice != nil {
		order.Price = *newPrice
	}
	if newQty != nil {
		order.Quantity = *newQty
	}
	order.ModificationCount++
	order.LastModificationTime = &at
	h.storage.UpdateOrder(order)
	return nil
}

// CancelOrder transitions an active order to CANCELLED and deactivates it.
func (h *Handler) CancelOrder(orderID int64, at time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	order, ok := h.storage.GetOrder(h.portfolioID, orderID)
	if !ok {
		return fmt.Errorf("orderhandler: order %d not found", orderID)
	}
	if !order.Transition(types.OrderStatusCancelled, at, "cancelled by caller") {
		return fmt.Errorf("orderhandler: order %d cannot be cancelled from status %s", orderID, order.Status)
	}
	h.storage.UpdateOrder(order)
	h.storage.DeactivateOrder(h.portfolioID, orderID)
	return nil
}

// RemoveOrder is a hard delete from the active index only — the order
// still exists in AllOrders for audit (same mechanism as DeactivateOrder).
func (h *Handler) RemoveOrder(orderID int64) {
	h.storage.DeactivateOrder(h.portfolioID, orderID)
}

// GetOrdersByStatus returns every order for the portfolio whose status matches.
func (h *Handler) GetOrdersByStatus(status string) []*types.Order {
	var out []*types.Order
	for _, o := range h.storage.AllOrders(h.portfolioID) {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// GetActiveOrders returns the portfolio's currently active orders.
func (h *Handler) GetActiveOrders() []*types.Order {
	return h.storage.ActiveOrders(h.portfolioID)
}

// GetOrderHistory returns every order ever placed for the portfolio.
func (h *Handler) GetOrderHistory() []*types.Order {
	return h.storage.AllOrders(h.portfolioID)
}

// SearchOrders filters order history by ticker substring and/or action,
// either of which may be left blank to skip that filter.
func (h *Handler) SearchOrders(tickerContains, action string) []*types.Order {
	var out []*types.Order
	for _, o := range h.storage.AllOrders(h.portfolioID) {
		if tickerContains != "" && !strings.Contains(o.Ticker, tickerContains) {
			continue
		}
		if action != "" && o.Action != action {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Summary is the aggregate view returned by GetOrdersSummary.
type Summary struct {
	Total      int
	Active     int
	Filled     int
	Cancelled  int
	Rejected   int
	Expired    int
}

// GetOrdersSummary tallies the portfolio's orders by status.
func (h *Handler) GetOrdersSummary() Summary {
	var s Summary
	for _, o := range h.storage.AllOrders(h.portfolioID) {
		s.Total++
		switch o.Status {
		case types.OrderStatusPending, types.OrderStatusPartiallyFilled:
			s.Active++
		case types.OrderStatusFilled:
			s.Filled++
		case types.OrderStatusCancelled:
			s.Cancelled++
		case types.OrderStatusRejected:
			s.Rejected++
		case types.OrderStatusExpired:
			s.Expired++
		}
	}
	return s
}
