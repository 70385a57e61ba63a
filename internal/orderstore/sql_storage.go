// SQLStorage is an optional OrderStorage backend persisting orders to a
// SQLite database via GORM, for deployments that want the order book to
// survive a process restart.
//
// Grounded on internal/database/database.go's New()/AutoMigrate pattern
// in web3guy0-polybot (decimal-typed GORM models, logger.Silent,
// sqlite.Open + AutoMigrate).
package orderstore

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/coretrade/engine/pkg/types"
)

// orderRow is the GORM-mapped persistence shape for types.Order; the
// Fills/StateChanges audit trails round-trip as JSON text since they're
// variable-length and never queried by column.
type orderRow struct {
	OrderID              int64  `gorm:"primaryKey"`
	PortfolioID          string `gorm:"index"`
	ClientOrderID        string
	Type                 string
	Status               string `gorm:"index"`
	Ticker               string
	Action               string
	Price                decimal.Decimal `gorm:"type:decimal(20,8)"`
	Quantity             decimal.Decimal `gorm:"type:decimal(20,8)"`
	FilledQuantity       decimal.Decimal `gorm:"type:decimal(20,8)"`
	Exchange             string
	StrategyID           string
	CreatedAt            time.Time
	ExpirationTime       *time.Time
	ModificationCount    int
	LastModificationTime *time.Time
	RejectionReason      string
	OCOGroupID           string
	StateChangesJSON     string
	FillsJSON            string
	Active               bool `gorm:"index"`
	Archived             bool `gorm:"index"`
}

func (orderRow) TableName() string {
	return "orders"
}

func toRow(o *types.Order, archived bool) (orderRow, error) {
	stateChanges, err := json.Marshal(o.StateChanges)
	if err != nil {
		return orderRow{}, fmt.Errorf("orderstore: marshal state changes: %w", err)
	}
	fills, err := json.Marshal(o.Fills)
	if err != nil {
		return orderRow{}, fmt.Errorf("orderstore: marshal fills: %w", err)
	}
	return orderRow{
		OrderID:              o.OrderID,
		PortfolioID:          o.PortfolioID,
		ClientOrderID:        o.ClientOrderID,
		Type:                 o.Type,
		Status:               o.Status,
		Ticker:               o.Ticker,
		Action:               o.Action,
		Price:                o.Price,
		Quantity:             o.Quantity,
		FilledQuantity:       o.FilledQuantity,
		Exchange:             o.Exchange,
		StrategyID:           o.StrategyID,
		CreatedAt:            o.CreatedAt,
		ExpirationTime:       o.ExpirationTime,
		ModificationCount:    o.ModificationCount,
		LastModificationTime: o.LastModificationTime,
		RejectionReason:      o.RejectionReason,
		OCOGroupID:           o.OCOGroupID,
		StateChangesJSON:     string(stateChanges),
		FillsJSON:            string(fills),
		Active:               o.IsActive(),
		Archived:             archived,
	}, nil
}

func fromRow(r orderRow) (*types.Order, error) {
	o := &types.Order{
		OrderID:              r.OrderID,
		PortfolioID:          r.PortfolioID,
		ClientOrderID:        r.ClientOrderID,
		Type:                 r.Type,
		Status:               r.Status,
		Ticker:               r.Ticker,
		Action:               r.Action,
		Price:                r.Price,
		Quantity:             r.Quantity,
		FilledQuantity:       r.FilledQuantity,
		Exchange:             r.Exchange,
		StrategyID:           r.StrategyID,
		CreatedAt:            r.CreatedAt,
		ExpirationTime:       r.ExpirationTime,
		ModificationCount:    r.ModificationCount,
		LastModificationTime: r.LastModificationTime,
		RejectionReason:      r.RejectionReason,
		OCOGroupID:           r.OCOGroupID,
	}
	if r.StateChangesJSON != "" {
		if err := json.Unmarshal([]byte(r.StateChangesJSON), &o.StateChanges); err != nil {
			return nil, fmt.Errorf("orderstore: unmarshal state changes: %w", err)
		}
	}
	if r.FillsJSON != "" {
		if err := json.Unmarshal([]byte(r.FillsJSON), &o.Fills); err != nil {
			return nil, fmt.Errorf("orderstore: unmarshal fills: %w", err)
		}
	}
	return o, nil
}

// SQLStorage implements OrderStorage against a GORM-managed SQLite
// database. It keeps the same active/all/archived semantics as InMemory:
// an explicit Active column (set from Order.IsActive() on every
// Save/Update, cleared by DeactivateOrder) stands in for the separate
// active-index map InMemory keeps, so deactivating an order never
// rewrites its Status.
type SQLStorage struct {
	mu sync.Mutex
	db *gorm.DB
}

// NewSQLStorage opens (creating if needed) a SQLite database at path and
// migrates the orders table.
func NewSQLStorage(path string) (*SQLStorage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("orderstore: open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&orderRow{}); err != nil {
		return nil, fmt.Errorf("orderstore: automigrate: %w", err)
	}
	return &SQLStorage{db: db}, nil
}

func (s *SQLStorage) SaveOrder(order *types.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, err := toRow(order, false)
	if err != nil {
		return
	}
	s.db.Save(&row)
}

func (s *SQLStorage) UpdateOrder(order *types.Order) {
	s.SaveOrder(order)
}

func (s *SQLStorage) GetOrder(portfolioID string, orderID int64) (*types.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var row orderRow
	err := s.db.Where("portfolio_id = ? AND order_id = ?", portfolioID, orderID).First(&row).Error
	if err != nil {
		return nil, false
	}
	order, err := fromRow(row)
	if err != nil {
		return nil, false
	}
	return order, true
}

func (s *SQLStorage) ActiveOrders(portfolioID string) []*types.Order {
	return s.query(portfolioID, func(db *gorm.DB) *gorm.DB {
		return db.Where("archived = ? AND active = ?", false, true).Order("order_id")
	})
}

func (s *SQLStorage) AllOrders(portfolioID string) []*types.Order {
	return s.query(portfolioID, func(db *gorm.DB) *gorm.DB {
		return db.Where("archived = ?", false).Order("order_id")
	})
}

func (s *SQLStorage) ArchivedOrders(portfolioID string) []*types.Order {
	return s.query(portfolioID, func(db *gorm.DB) *gorm.DB {
		return db.Where("archived = ?", true).Order("order_id")
	})
}

func (s *SQLStorage) query(portfolioID string, scope func(*gorm.DB) *gorm.DB) []*types.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []orderRow
	scope(s.db.Where("portfolio_id = ?", portfolioID)).Find(&rows)
	out := make([]*types.Order, 0, len(rows))
	for _, row := range rows {
		if order, err := fromRow(row); err == nil {
			out = append(out, order)
		}
	}
	return out
}

// DeactivateOrder removes orderID from the active index without touching
// its Status — a terminal FILLED order deactivated here (the common case,
// since OrderManager deactivates every order that just reached a terminal
// state) must stay FILLED, not flip to CANCELLED.
func (s *SQLStorage) DeactivateOrder(portfolioID string, orderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db.Model(&orderRow{}).
		Where("portfolio_id = ? AND order_id = ?", portfolioID, orderID).
		Update("active", false)
}

func (s *SQLStorage) ArchiveOrders(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	terminal := []string{types.OrderStatusFilled, types.OrderStatusCancelled, types.OrderStatusRejected, types.OrderStatusExpired}
	result := s.db.Model(&orderRow{}).
		Where("archived = ? AND status IN ? AND created_at < ?", false, terminal, cutoff).
		Update("archived", true)
	return int(result.RowsAffected)
}
