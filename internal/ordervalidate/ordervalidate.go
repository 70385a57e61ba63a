// Package ordervalidate implements OrderValidator: a four-phase
// progressive pipeline run against a Signal, stopping at the first
// phase that fails.
package ordervalidate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coretrade/engine/pkg/types"
)

// Message is one line of a ValidationResult, carrying a severity level,
// a machine-checkable code, a human message, and the field it concerns.
type Message struct {
	Level   string
	Code    string
	Message string
	Field   string
}

// Result is the outcome of running the pipeline against a Signal.
type Result struct {
	Success  bool
	Messages []Message
	Summary  string
}

func fail(code, field, format string, args ...interface{}) Result {
	msg := fmt.Sprintf(format, args...)
	return Result{
		Success: false,
		Messages: []Message{{
			Level:   types.ValidationLevelError,
			Code:    code,
			Message: msg,
			Field:   field,
		}},
		Summary: msg,
	}
}

// PortfolioState is the minimal view of portfolio state phase 3 needs:
// available cash and held quantity per ticker.
type PortfolioState struct {
	Exchange          string
	Cash              decimal.Decimal
	HeldQuantity      func(ticker string) decimal.Decimal
}

// RiskLimits bounds phase 4, the per-order financial risk checks.
type RiskLimits struct {
	MinOrderValue    decimal.Decimal
	MaxOrderValue    decimal.Decimal
	MinQuantity      decimal.Decimal
	MaxQuantity      decimal.Decimal
	MinPrice         decimal.Decimal
	MaxPrice         decimal.Decimal
	SupportedExchanges map[string]bool
}

// Validator runs the four-phase pipeline over a Signal.
type Validator struct {
	Limits RiskLimits
}

// New returns a Validator enforcing the given risk limits.
func New(limits RiskLimits) *Validator {
	return &Validator{Limits: limits}
}

// ValidateSignalPipeline runs phases 1-4 in order against sig, stopping
// at the first failure, and sets sig.Verified = true on success.
func (v *Validator) ValidateSignalPipeline(sig *types.Signal, portfolio PortfolioState) Result {
	if r := v.validateCriticalFields(sig); !r.Success {
		return r
	}
	if r := v.validateMarketConditions(portfolio); !r.Success {
		return r
	}
	if r := v.validatePortfolioConstraints(sig, portfolio); !r.Success {
		return r
	}
	if r := v.validateFinancialRisk(sig); !r.Success {
		return r
	}
	sig.Verified = true
	return Result{Success: true, Summary: "signal passed all validation phases"}
}

// Phase 1: critical fields.
func (v *Validator) validateCriticalFields(sig *types.Signal) Result {
	if sig.Ticker == "" {
		return fail("MISSING_TICKER", "ticker", "ticker must not be empty")
	}
	if sig.Action != types.ActionBuy && sig.Action != types.ActionSell {
		return fail("INVALID_ACTION", "action", "action must be BUY or SELL, got %q", sig.Action)
	}
	if !sig.Price.IsPositive() {
		return fail("INVALID_PRICE", "price", "price must be positive, got %s", sig.Price)
	}
	switch sig.OrderType {
	case types.OrderTypeMarket, types.OrderTypeStop, types.OrderTypeLimit:
	default:
		return fail("INVALID_ORDER_TYPE", "orderType", "orderType must be MARKET, STOP or LIMIT, got %q", sig.OrderType)
	}
	return Result{Success: true}
}

// Phase 2: market conditions.
func (v *Validator) validateMarketConditions(portfolio PortfolioState) Result {
	if len(v.Limits.SupportedExchanges) > 0 && !v.Limits.SupportedExchanges[portfolio.Exchange] {
		return fail("UNSUPPORTED_EXCHANGE", "exchange", "exchange %q is not supported", portfolio.Exchange)
	}
	return Result{Success: true}
}

// Phase 3: portfolio constraints.
func (v *Validator) validatePortfolioConstraints(sig *types.Signal, portfolio PortfolioState) Result {
	if sig.Action == types.ActionBuy {
		required := sig.Quantity.Mul(sig.Price)
		if portfolio.Cash.LessThan(required) {
			return fail("INSUFFICIENT_CASH", "quantity", "cash %s < required %s", portfolio.Cash, required)
		}
		return Result{Success: true}
	}
	held := portfolio.HeldQuantity(sig.Ticker)
	if held.LessThan(sig.Quantity) {
		return fail("INSUFFICIENT_HOLDINGS", "quantity", "held quantity %s < sell quantity %s", held, sig.Quantity)
	}
	return Result{Success: true}
}

// Phase 4: financial risk.
func (v *Validator) validateFinancialRisk(sig *types.Signal) Result {
	value := sig.Quantity.Mul(sig.Price)
	if !v.Limits.MinOrderValue.IsZero() && value.LessThan(v.Limits.MinOrderValue) {
		return fail("ORDER_VALUE_TOO_SMALL", "quantity", "order value %s < minimum %s", value, v.Limits.MinOrderValue)
	}
	if !v.Limits.MaxOrderValue.IsZero() && value.GreaterThan(v.Limits.MaxOrderValue) {
		return fail("ORDER_VALUE_TOO_LARGE", "quantity", "order value %s > maximum %s", value, v.Limits.MaxOrderValue)
	}
	if !v.Limits.MinQuantity.IsZero() && sig.Quantity.LessThan(v.Limits.MinQuantity) {
		return fail("QUANTITY_TOO_SMALL", "quantity", "quantity %s < minimum %s", sig.Quantity, v.Limits.MinQuantity)
	}
	if !v.Limits.MaxQuantity.IsZero() && sig.Quantity.GreaterThan(v.Limits.MaxQuantity) {
		return fail("QUANTITY_TOO_LARGE", "quantity", "quantity %s > maximum %s", sig.Quantity, v.Limits.MaxQuantity)
	}
	if !v.Limits.MinPrice.IsZero() && sig.Price.LessThan(v.Limits.MinPrice) {
		return fail("PRICE_TOO_LOW", "price", "price %s < minimum %s", sig.Price, v.Limits.MinPrice)
	}
	if !v.Limits.MaxPrice.IsZero() && sig.Price.GreaterThan(v.Limits.MaxPrice) {
		return fail("PRICE_TOO_HIGH", "price", "price %s > maximum %s", sig.Price, v.Limits.MaxPrice)
	}
	return Result{Success: true}
}

// ValidateOrderModification rejects modifications to an inactive order,
// or one whose new quantity would fall below what's already filled.
func (v *Validator) ValidateOrderModification(order *types.Order, newPrice, newQty *decimal.Decimal) Result {
	if !order.IsActive() {
		return fail("ORDER_NOT_ACTIVE", "status", "order %d is not active (status=%s)", order.OrderID, order.Status)
	}
	if newQty != nil && newQty.LessThan(order.FilledQuantity) {
		return fail("QUANTITY_BELOW_FILLED", "quantity", "new quantity %s < filled quantity %s", *newQty, order.FilledQuantity)
	}
	return Result{Success: true}
}
