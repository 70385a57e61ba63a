// Package feemodel implements the engine's commission calculators.
// Each variant is a concrete type satisfying FeeModel, a capability
// interface rather than a virtual-inheritance hierarchy.
package feemodel

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned when qty or price is non-positive.
var ErrInvalidInput = errors.New("feemodel: qty and price must be positive")

// FeeModel computes the commission owed on a trade.
type FeeModel interface {
	CalculateFee(qty, price decimal.Decimal, side, orderType string, extras map[string]interface{}) (decimal.Decimal, error)
}

func validate(qty, price decimal.Decimal) error {
	if !qty.IsPositive() || !price.IsPositive() {
		return ErrInvalidInput
	}
	return nil
}

// Zero always charges no commission.
type Zero struct{}

func (Zero) CalculateFee(qty, price decimal.Decimal, side, orderType string, extras map[string]interface{}) (decimal.Decimal, error) {
	if err := validate(qty, price); err != nil {
		return decimal.Zero, err
	}
	return decimal.Zero, nil
}

// Percent charges tradeValue * rate, with optional distinct buy/sell rates.
type Percent struct {
	BuyRate  decimal.Decimal
	SellRate decimal.Decimal
}

// NewPercent returns a Percent model with the same rate for both sides.
func NewPercent(rate decimal.Decimal) Percent {
	return Percent{BuyRate: rate, SellRate: rate}
}

func (p Percent) CalculateFee(qty, price decimal.Decimal, side, orderType string, extras map[string]interface{}) (decimal.Decimal, error) {
	if err := validate(qty, price); err != nil {
		return decimal.Zero, err
	}
	rate := p.BuyRate
	if side == "SELL" {
		rate = p.SellRate
	}
	return qty.Mul(price).Mul(rate), nil
}

// MakerTaker charges makerRate or takerRate depending on whether the
// order behaved as a maker. isMaker defaults from orderType
// (LIMIT->maker, MARKET->taker) unless extras["isMaker"] overrides it.
type MakerTaker struct {
	MakerRate decimal.Decimal
	TakerRate decimal.Decimal
}

func (m MakerTaker) CalculateFee(qty, price decimal.Decimal, side, orderType string, extras map[string]interface{}) (decimal.Decimal, error) {
	if err := validate(qty, price); err != nil {
		return decimal.Zero, err
	}
	isMaker := orderType == "LIMIT"
	if extras != nil {
		if v, ok := extras["isMaker"]; ok {
			if b, ok := v.(bool); ok {
				isMaker = b
			}
		}
	}
	rate := m.TakerRate
	if isMaker {
		rate = m.MakerRate
	}
	return qty.Mul(price).Mul(rate), nil
}

// Tier is one band of a Tiered fee schedule, active once cumulative
// 30-day volume reaches VolumeThreshold.
type Tier struct {
	VolumeThreshold decimal.Decimal
	MakerRate       decimal.Decimal
	TakerRate       decimal.Decimal
}

// Tiered selects its active tier from cumulative rolling volume, which
// callers advance with AddToVolume/UpdateVolume/ResetVolume.
type Tiered struct {
	tiers  []Tier
	volume decimal.Decimal
}

// NewTiered builds a Tiered model from tiers sorted ascending by
// VolumeThreshold; it rejects an empty list or a first tier whose
// threshold isn't zero.
func NewTiered(tiers []Tier) (*Tiered, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("feemodel: tiered schedule requires at least one tier")
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].VolumeThreshold.LessThan(sorted[j].VolumeThreshold)
	})
	if !sorted[0].VolumeThreshold.IsZero() {
		return nil, fmt.Errorf("feemodel: first tier threshold must be 0, got %s", sorted[0].VolumeThreshold)
	}
	return &Tiered{tiers: sorted}, nil
}

// activeTier returns the highest tier whose threshold the current
// volume has reached.
func (t *Tiered) activeTier() Tier {
	active := t.tiers[0]
	for _, tier := range t.tiers {
		if t.volume.GreaterThanOrEqual(tier.VolumeThreshold) {
			active = tier
		}
	}
	return active
}

func (t *Tiered) CalculateFee(qty, price decimal.Decimal, side, orderType string, extras map[string]interface{}) (decimal.Decimal, error) {
	if err := validate(qty, price); err != nil {
		return decimal.Zero, err
	}
	tier := t.activeTier()
	isMaker := orderType == "LIMIT"
	if extras != nil {
		if v, ok := extras["isMaker"]; ok {
			if b, ok := v.(bool); ok {
				isMaker = b
			}
		}
	}
	rate := tier.TakerRate
	if isMaker {
		rate = tier.MakerRate
	}
	return qty.Mul(price).Mul(rate), nil
}

// UpdateVolume replaces the cumulative 30-day volume used for tier selection.
func (t *Tiered) UpdateVolume(volume decimal.Decimal) {
	t.volume = volume
}

// AddToVolume adds delta to the cumulative volume.
func (t *Tiered) AddToVolume(delta decimal.Decimal) {
	t.volume = t.volume.Add(delta)
}

// ResetVolume zeroes the cumulative volume, e.g. at the start of a new window.
func (t *Tiered) ResetVolume() {
	t.volume = decimal.Zero
}
