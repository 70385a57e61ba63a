// Package simexchange implements SimulatedExchange: a connection-state
// machine over a FeeModel/SlippageModel pair that
// validates and executes orders, including a failure-injection mode for
// resilience testing.
//
// Grounded on the logger + RWMutex connection-flag shape of
// internal/exchange/base.go in the teacher repo.
package simexchange

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/coretrade/engine/internal/feemodel"
	"github.com/coretrade/engine/internal/slippage"
	"github.com/coretrade/engine/pkg/types"
)

// Config bundles the tunables one exchange preset sets
// (default/realistic/high_fee/low_latency).
type Config struct {
	Name              string
	SupportedSymbols  map[string]bool // empty means "all symbols supported"
	MinOrderSize      decimal.Decimal
	MaxOrderSize      decimal.Decimal
	SimulateFailures  bool
	FailureRate       float64
	FeeModel          feemodel.FeeModel
	SlippageModel     slippage.SlippageModel
	ReconnectDelay    time.Duration
}

// Exchange is the simulated broker every OrderEvent is routed through.
type Exchange struct {
	mu           sync.RWMutex
	config       Config
	state        string
	logger       *logrus.Entry
	rnd          *rand.Rand
	ordersFailed atomic.Uint64
	ordersOK     atomic.Uint64
}

// New returns an Exchange in the DISCONNECTED state.
func New(config Config) *Exchange {
	return &Exchange{
		config: config,
		state:  types.ConnStateDisconnected,
		logger: logrus.WithField("component", "simexchange").WithField("preset", config.Name),
		rnd:    rand.New(rand.NewSource(1)),
	}
}

// State returns the current connection state.
func (e *Exchange) State() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// UpdateConfig replaces the exchange's tunable configuration.
func (e *Exchange) UpdateConfig(config Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = config
}

// GetConfigDict returns a flat view of the current config, suitable for
// logging or reporting.
func (e *Exchange) GetConfigDict() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return map[string]interface{}{
		"name":             e.config.Name,
		"minOrderSize":     e.config.MinOrderSize,
		"maxOrderSize":     e.config.MaxOrderSize,
		"simulateFailures": e.config.SimulateFailures,
		"failureRate":      e.config.FailureRate,
	}
}

// Connect drives DISCONNECTED -> CONNECTING -> CONNECTED. It's
// idempotent: calling it while already CONNECTED just returns success.
func (e *Exchange) Connect() types.ConnectionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	if e.state == types.ConnStateConnected {
		return types.ConnectionResult{Success: true, State: e.state, Time: now}
	}
	e.state = types.ConnStateConnecting
	e.state = types.ConnStateConnected
	e.logger.Info("exchange connected")
	return types.ConnectionResult{Success: true, State: e.state, Time: now}
}

// Disconnect drives CONNECTED -> DISCONNECTING -> DISCONNECTED.
func (e *Exchange) Disconnect() types.ConnectionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	e.state = types.ConnStateDisconnecting
	e.state = types.ConnStateDisconnected
	e.logger.Info("exchange disconnected")
	return types.ConnectionResult{Success: true, State: e.state, Time: now}
}

// HealthCheck reports the exchange's current reachability.
func (e *Exchange) HealthCheck() types.HealthStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return types.HealthStatus{
		Healthy:   e.state == types.ConnStateConnected,
		State:     e.state,
		CheckedAt: time.Now(),
	}
}

// ValidateOrder enforces symbol support, quantity bounds, positive
// price (warn above 1,000,000), active connection, and a soft minimum
// order value.
func (e *Exchange) ValidateOrder(o *types.Order) types.ValidationResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var violations []string
	if len(e.config.SupportedSymbols) > 0 && !e.config.SupportedSymbols[o.Ticker] {
		violations = append(violations, fmt.Sprintf("symbol %q not supported", o.Ticker))
	}
	if !o.Quantity.IsPositive() {
		violations = append(violations, "quantity must be positive")
	} else {
		if !e.config.MinOrderSize.IsZero() && o.Quantity.LessThan(e.config.MinOrderSize) {
			violations = append(violations, fmt.Sprintf("quantity %s below minimum %s", o.Quantity, e.config.MinOrderSize))
		}
		if !e.config.MaxOrderSize.IsZero() && o.Quantity.GreaterThan(e.config.MaxOrderSize) {
			violations = append(violations, fmt.Sprintf("quantity %s above maximum %s", o.Quantity, e.config.MaxOrderSize))
		}
	}
	if !o.Price.IsPositive() {
		violations = append(violations, "price must be positive")
	}
	if e.state != types.ConnStateConnected {
		violations = append(violations, "exchange is not connected")
	}
	if len(violations) > 0 {
		return types.ValidationResult{Passed: false, Level: types.ValidationLevelError, Violations: violations}
	}

	var warnings []string
	if o.Price.GreaterThan(decimal.NewFromInt(1_000_000)) {
		warnings = append(warnings, "price exceeds 1,000,000")
	}
	if o.Quantity.Mul(o.Price).LessThan(decimal.NewFromInt(1)) {
		warnings = append(warnings, "order value below 1.0")
	}
	return types.ValidationResult{Passed: true, Level: types.ValidationLevelWarning, Violations: warnings}
}

// ExecuteOrder runs the execution algorithm at the order's own stored
// price: validate, check connectivity, optionally inject a failure,
// then compute the slippage-adjusted fill price and the commission on it.
func (e *Exchange) ExecuteOrder(o *types.Order) types.ExecutionResult {
	return e.ExecuteOrderAt(o, o.Price)
}

// ExecuteOrderAt runs the same execution algorithm but slippage is
// applied to basePrice instead of o.Price — used by OrderManager to
// execute a queued MARKET order at a later bar's open price while still
// validating the order's own fields.
func (e *Exchange) ExecuteOrderAt(o *types.Order, basePrice decimal.Decimal) types.ExecutionResult {
	now := time.Now()

	if vr := e.ValidateOrder(o); !vr.Passed {
		e.ordersFailed.Add(1)
		code := types.ErrCodeInvalidOrder
		if e.State() != types.ConnStateConnected {
			code = types.ErrCodeNetworkError
		}
		return types.ExecutionResult{
			Accepted:   false,
			OrderID:    o.OrderID,
			ErrCode:    code,
			ErrMessage: fmt.Sprintf("validation failed: %v", vr.Violations),
			Time:       now,
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != types.ConnStateConnected {
		e.ordersFailed.Add(1)
		return types.ExecutionResult{Accepted: false, OrderID: o.OrderID, ErrCode: types.ErrCodeNetworkError, Time: now}
	}

	if e.config.SimulateFailures && e.rnd.Float64() < e.config.FailureRate {
		code := types.SimulatedFailureScenarios[e.rnd.Intn(len(types.SimulatedFailureScenarios))]
		e.ordersFailed.Add(1)
		e.logger.WithField("errCode", code).Warn("injected exchange failure")
		return types.ExecutionResult{Accepted: false, OrderID: o.OrderID, ErrCode: code, Time: now}
	}

	factor := e.config.SlippageModel.CalculateSlippageFactor(o.Quantity, basePrice, o.Action, o.Type)
	executedPrice := basePrice.Mul(decimal.NewFromFloat(factor))
	extras := map[string]interface{}{}
	commission, err := e.config.FeeModel.CalculateFee(o.Quantity, executedPrice, o.Action, o.Type, extras)
	if err != nil {
		e.ordersFailed.Add(1)
		return types.ExecutionResult{Accepted: false, OrderID: o.OrderID, ErrCode: types.ErrCodeInvalidOrder, ErrMessage: err.Error(), Time: now}
	}

	e.ordersOK.Add(1)
	return types.ExecutionResult{
		Accepted:       true,
		OrderID:        o.OrderID,
		FilledQuantity: o.Quantity,
		RequestedQty:   o.Quantity,
		FillPrice:      executedPrice,
		Commission:     commission,
		Time:           now,
	}
}
