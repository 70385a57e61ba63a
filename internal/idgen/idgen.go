// Package idgen hands out monotonic, per-entity-kind identifiers. A
// single IDGen backs the whole engine so OrderID/PositionID/TransactionID
// sequences never collide across portfolios or threads.
//
// Grounded on the atomic-counter style of
// internal/position/manager.go (atomic.Uint64/atomic.Int64 fields)
// in the teacher repo.
package idgen

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGen issues monotonically increasing int64 identifiers, one counter
// per entity kind, safe for concurrent use without a lock.
type IDGen struct {
	order       atomic.Int64
	position    atomic.Int64
	transaction atomic.Int64
	fill        atomic.Int64
	cashOp      atomic.Int64
}

// New returns an IDGen whose counters all start at 0; the first ID
// issued by each kind is 1.
func New() *IDGen {
	return &IDGen{}
}

// NextOrderID returns the next OrderID.
func (g *IDGen) NextOrderID() int64 {
	return g.order.Add(1)
}

// NextPositionID returns the next PositionID.
func (g *IDGen) NextPositionID() int64 {
	return g.position.Add(1)
}

// NextTransactionID returns the next TransactionID.
func (g *IDGen) NextTransactionID() int64 {
	return g.transaction.Add(1)
}

// NextFillID returns the next Fill sequence number.
func (g *IDGen) NextFillID() int64 {
	return g.fill.Add(1)
}

// NextCashOpID returns the next CashOperation ID.
func (g *IDGen) NextCashOpID() int64 {
	return g.cashOp.Add(1)
}

// NewClientOrderID mints a client-facing string identifier layered over
// the monotonic integer OrderID, for correlation with exchange-side
// order refs and external logs.
func NewClientOrderID() string {
	return uuid.New().String()
}
