// Package position implements PositionManager: opening, averaging,
// reducing, and closing positions from transactions, and marking open
// positions to market from bar events.
//
// Grounded on the cache/atomic-counter shape of
// internal/position/manager.go in the teacher repo — the shared-memory
// (mmap/unsafe) persistence layer there is dropped since this engine
// has no cross-process sharing requirement; see DESIGN.md.
package position

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coretrade/engine/internal/idgen"
	"github.com/coretrade/engine/pkg/types"
)

// Manager tracks every position opened within one portfolio, split into
// open (by ticker) and closed (append-only) sets.
type Manager struct {
	mu     sync.RWMutex
	ids    *idgen.IDGen
	open   map[string]*types.Position // ticker -> open position
	closed []*types.Position

	updateCount atomic.Uint64
	readCount   atomic.Uint64
}

// New returns an empty Manager.
func New(ids *idgen.IDGen) *Manager {
	return &Manager{ids: ids, open: make(map[string]*types.Position)}
}

// Open returns the open position for ticker, if any.
func (m *Manager) Open(ticker string) (*types.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.readCount.Add(1)
	p, ok := m.open[ticker]
	return p, ok
}

// OpenPositions returns a snapshot slice of all currently open positions.
func (m *Manager) OpenPositions() []*types.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Position, 0, len(m.open))
	for _, p := range m.open {
		out = append(out, p)
	}
	return out
}

// ClosedPositions returns a snapshot slice of every closed position.
func (m *Manager) ClosedPositions() []*types.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Position, len(m.closed))
	copy(out, m.closed)
	return out
}

// ProcessPositionUpdate applies a settled transaction to the position
// book: opens a new position if none exists for the ticker,
// averages-in when the transaction extends the existing side,
// or reduces/closes it otherwise. Returns the position and whether this
// update closed it.
func (m *Manager) ProcessPositionUpdate(txn types.Transaction) (*types.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCount.Add(1)

	pos, exists := m.open[txn.Ticker]
	if !exists {
		side := types.PositionSideLong
		if txn.Action == types.ActionSell {
			side = types.PositionSideShort
		}
		pos = &types.Position{
			PositionID: m.ids.NextPositionID(),
			Ticker:     txn.Ticker,
			Side:       side,
			EntryDate:  txn.Time,
		}
		m.applyOpeningTransaction(pos, txn)
		m.open[txn.Ticker] = pos
		return pos, false
	}

	openingAction := types.ActionBuy
	if pos.Side == types.PositionSideShort {
		openingAction = types.ActionSell
	}

	if txn.Action == openingAction {
		m.applyOpeningTransaction(pos, txn)
	} else {
		m.applyReducingTransaction(pos, txn)
	}

	if pos.IsClosed() {
		exitTime := txn.Time
		pos.ExitDate = &exitTime
		delete(m.open, txn.Ticker)
		m.closed = append(m.closed, pos)
		return pos, true
	}
	return pos, false
}

// applyOpeningTransaction extends the position's opening side (the side
// that increases |netQuantity|), averaging price and accumulating commission.
func (m *Manager) applyOpeningTransaction(pos *types.Position, txn types.Transaction) {
	if pos.Side == types.PositionSideLong {
		pos.AvgBought = types.Average(pos.AvgBought, pos.BuyQuantity, txn.Quantity, txn.Price)
		pos.BuyQuantity = pos.BuyQuantity.Add(txn.Quantity)
		pos.BuyCommission = pos.BuyCommission.Add(txn.Commission)
		return
	}
	pos.AvgSold = types.Average(pos.AvgSold, pos.SellQuantity, txn.Quantity, txn.Price)
	pos.SellQuantity = pos.SellQuantity.Add(txn.Quantity)
	pos.SellCommission = pos.SellCommission.Add(txn.Commission)
}

// applyReducingTransaction records a transaction on the closing side of
// the position (a SELL against a LONG, a BUY against a SHORT).
func (m *Manager) applyReducingTransaction(pos *types.Position, txn types.Transaction) {
	if pos.Side == types.PositionSideLong {
		pos.AvgSold = types.Average(pos.AvgSold, pos.SellQuantity, txn.Quantity, txn.Price)
		pos.SellQuantity = pos.SellQuantity.Add(txn.Quantity)
		pos.SellCommission = pos.SellCommission.Add(txn.Commission)
		return
	}
	pos.AvgBought = types.Average(pos.AvgBought, pos.BuyQuantity, txn.Quantity, txn.Price)
	pos.BuyQuantity = pos.BuyQuantity.Add(txn.Quantity)
	pos.BuyCommission = pos.BuyCommission.Add(txn.Commission)
}

// UpdateMarketValues marks every open position's CurrentPrice from a bar
// set; positions with no ticker in the bar set are left untouched, and
// closed positions are never affected.
func (m *Manager) UpdateMarketValues(bars types.BarSet, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ticker, pos := range m.open {
		if price, ok := bars.ClosePrice(ticker); ok {
			pos.CurrentPrice = price
		}
	}
}

// TotalUnrealisedPnL sums UnrealisedPnL across every open position.
func (m *Manager) TotalUnrealisedPnL() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, p := range m.open {
		total = total.Add(p.UnrealisedPnL())
	}
	return total
}

// TotalRealisedPnL sums RealisedPnL across every closed position.
func (m *Manager) TotalRealisedPnL() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, p := range m.closed {
		total = total.Add(p.RealisedPnL())
	}
	return total
}

// TotalMarketValue sums MarketValue across every open position.
func (m *Manager) TotalMarketValue() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, p := range m.open {
		total = total.Add(p.MarketValue())
	}
	return total
}
