package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionResult is returned by an exchange's Execute call.
// IsFullyFilled/IsPartiallyFilled/TotalValue/NetValue are derived rather
// than stored, so they can never drift from FilledQuantity/Commission.
type ExecutionResult struct {
	Accepted       bool
	OrderID        int64
	FilledQuantity decimal.Decimal
	RequestedQty   decimal.Decimal
	FillPrice      decimal.Decimal
	Commission     decimal.Decimal
	ErrCode        string
	ErrMessage     string
	Time           time.Time
}

// IsFullyFilled reports whether the requested quantity was filled in full.
func (r ExecutionResult) IsFullyFilled() bool {
	return r.Accepted && r.FilledQuantity.Equal(r.RequestedQty)
}

// IsPartiallyFilled reports whether some but not all of the requested
// quantity was filled.
func (r ExecutionResult) IsPartiallyFilled() bool {
	return r.Accepted && r.FilledQuantity.IsPositive() && r.FilledQuantity.LessThan(r.RequestedQty)
}

// TotalValue returns FilledQuantity * FillPrice, before commission.
func (r ExecutionResult) TotalValue() decimal.Decimal {
	return r.FilledQuantity.Mul(r.FillPrice)
}

// NetValue returns TotalValue adjusted by commission: a BUY spends
// TotalValue+Commission, a SELL receives TotalValue-Commission. Callers
// that already know the side should prefer computing this themselves;
// this helper assumes a SELL-style credit (commission subtracted).
func (r ExecutionResult) NetValue() decimal.Decimal {
	return r.TotalValue().Sub(r.Commission)
}

// ConnectionResult is returned by an exchange's Connect/Disconnect calls.
type ConnectionResult struct {
	Success    bool
	State      string
	ErrCode    string
	ErrMessage string
	Time       time.Time
}

// HealthStatus is returned by an exchange's HealthCheck call.
type HealthStatus struct {
	Healthy        bool
	State          string
	LatencyMillis  int64
	LastError      string
	CheckedAt      time.Time
}

// ValidationResult is the output of one stage of the OrderValidator
// pipeline; a non-empty Violations means the stage rejected the order
// before later stages ran.
type ValidationResult struct {
	Passed     bool
	Level      string
	Violations []string
}

// Combine merges a later-stage result into this one, short-circuiting
// once any stage has failed.
func (v ValidationResult) Combine(other ValidationResult) ValidationResult {
	if !v.Passed {
		return v
	}
	return other
}
