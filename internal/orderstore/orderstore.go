// Package orderstore implements OrderStorage: the active/all/archived
// order indices that back OrderManager's OCO cleanup and audit trail.
//
// Grounded on the buffered-index structure of
// pkg/storage/file_storage.go in the teacher repo (per-key maps guarded
// by a mutex); the file-backed JSONL buffering there is replaced with a
// pure in-memory index since OrderStorage is an interface with a
// default in-memory implementation, not a durability layer.
package orderstore

import (
	"sort"
	"sync"
	"time"

	"github.com/coretrade/engine/pkg/types"
)

// OrderStorage is the persistence contract OrderManager and OrderHandler
// depend on.
type OrderStorage interface {
	SaveOrder(order *types.Order)
	UpdateOrder(order *types.Order)
	GetOrder(portfolioID string, orderID int64) (*types.Order, bool)
	ActiveOrders(portfolioID string) []*types.Order
	AllOrders(portfolioID string) []*types.Order
	ArchivedOrders(portfolioID string) []*types.Order
	DeactivateOrder(portfolioID string, orderID int64)
	ArchiveOrders(cutoff time.Time) int
}

// InMemory is the default OrderStorage: three indices per portfolio —
// active (PENDING/PARTIALLY_FILLED only), all (every order, including
// terminal), and archived (terminal orders moved out of all by
// ArchiveOrders).
type InMemory struct {
	mu       sync.RWMutex
	active   map[string]map[int64]*types.Order
	all      map[string]map[int64]*types.Order
	archived map[string]map[int64]*types.Order
}

// New returns an empty InMemory order store.
func New() *InMemory {
	return &InMemory{
		active:   make(map[string]map[int64]*types.Order),
		all:      make(map[string]map[int64]*types.Order),
		archived: make(map[string]map[int64]*types.Order),
	}
}

func ensure(m map[string]map[int64]*types.Order, portfolioID string) map[int64]*types.Order {
	bucket, ok := m[portfolioID]
	if !ok {
		bucket = make(map[int64]*types.Order)
		m[portfolioID] = bucket
	}
	return bucket
}

// SaveOrder inserts a newly created order into both the all and (if
// active) active indices.
func (s *InMemory) SaveOrder(order *types.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensure(s.all, order.PortfolioID)[order.OrderID] = order
	if order.IsActive() {
		ensure(s.active, order.PortfolioID)[order.OrderID] = order
	}
}

// UpdateOrder keeps the active/inactive indexing consistent with the
// order's current status.
func (s *InMemory) UpdateOrder(order *types.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensure(s.all, order.PortfolioID)[order.OrderID] = order
	if order.IsActive() {
		ensure(s.active, order.PortfolioID)[order.OrderID] = order
	} else if bucket, ok := s.active[order.PortfolioID]; ok {
		delete(bucket, order.OrderID)
	}
}

// GetOrder looks up an order by portfolio and order ID in the all
// index first, then in the archived index.
func (s *InMemory) GetOrder(portfolioID string, orderID int64) (*types.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bucket, ok := s.all[portfolioID]; ok {
		if o, ok := bucket[orderID]; ok {
			return o, true
		}
	}
	if bucket, ok := s.archived[portfolioID]; ok {
		if o, ok := bucket[orderID]; ok {
			return o, true
		}
	}
	return nil, false
}

// ActiveOrders returns every active order for portfolioID, sorted by
// OrderID ascending — OrderManager relies on this deterministic order
// for its stop/limit trigger tie-break.
func (s *InMemory) ActiveOrders(portfolioID string) []*types.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.active[portfolioID])
}

// AllOrders returns every order ever saved for portfolioID (terminal
// orders included, except ones already archived out).
func (s *InMemory) AllOrders(portfolioID string) []*types.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.all[portfolioID])
}

// ArchivedOrders returns every order moved out of All by ArchiveOrders.
func (s *InMemory) ArchivedOrders(portfolioID string) []*types.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.archived[portfolioID])
}

// DeactivateOrder removes orderID from the active index but preserves
// it in All — this is how OCO cleanup is implemented.
func (s *InMemory) DeactivateOrder(portfolioID string, orderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket, ok := s.active[portfolioID]; ok {
		delete(bucket, orderID)
	}
}

// ArchiveOrders moves every terminal order created before cutoff out of
// All into Archived, across all portfolios, and returns the count moved.
func (s *InMemory) ArchiveOrders(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := 0
	for portfolioID, bucket := range s.all {
		for orderID, order := range bucket {
			if order.IsTerminal() && order.CreatedAt.Before(cutoff) {
				delete(bucket, orderID)
				ensure(s.archived, portfolioID)[orderID] = order
				moved++
			}
		}
	}
	return moved
}

func sortedValues(bucket map[int64]*types.Order) []*types.Order {
	out := make([]*types.Order, 0, len(bucket))
	for _, o := range bucket {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}
