package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashOperation is an append-only audit record of a cash-balance mutation.
type CashOperation struct {
	OperationID    int64
	OperationType  string
	Amount         decimal.Decimal
	Timestamp      time.Time
	Description    string
	ReferenceID    string
	BalanceBefore  decimal.Decimal
	BalanceAfter   decimal.Decimal
}

// RoundCash quantizes a decimal to 2 places, half-up — the fixed-point
// representation every cash-affecting figure in the engine uses.
func RoundCash(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
