package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is the confirmed result of executing (part of) an order.
type Fill struct {
	OrderID     int64
	Time        time.Time
	Status      string // EXECUTED | REJECTED
	Ticker      string
	Action      string
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Commission  decimal.Decimal
	PortfolioID string
	Reason      string // e.g. "stop loss triggered", "limit order triggered"
}

// Transaction records the cash-affecting side of a fill.
type Transaction struct {
	TransactionID int64
	PortfolioID   string
	PositionID    int64
	Time          time.Time
	Ticker        string
	Action        string
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	Commission    decimal.Decimal
}

// Value returns quantity * price for the transaction (before commission).
func (t Transaction) Value() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}
