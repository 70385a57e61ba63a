package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position tracks long/short accounting for one ticker inside a
// portfolio, with average price and realized/unrealized P&L.
type Position struct {
	PositionID     int64
	Ticker         string
	Side           string // LONG | SHORT
	BuyQuantity    decimal.Decimal
	SellQuantity   decimal.Decimal
	AvgBought      decimal.Decimal
	AvgSold        decimal.Decimal
	BuyCommission  decimal.Decimal
	SellCommission decimal.Decimal
	CurrentPrice   decimal.Decimal
	EntryDate      time.Time
	ExitDate       *time.Time
}

// NetQuantity returns BuyQuantity - SellQuantity.
func (p *Position) NetQuantity() decimal.Decimal {
	return p.BuyQuantity.Sub(p.SellQuantity)
}

// IsClosed reports whether the position's net quantity has returned to zero.
func (p *Position) IsClosed() bool {
	return p.NetQuantity().IsZero()
}

// AvgPrice returns the average entry price of the position's open side,
// net of commission.
func (p *Position) AvgPrice() decimal.Decimal {
	if p.Side == PositionSideLong {
		if p.BuyQuantity.IsZero() {
			return decimal.Zero
		}
		return p.AvgBought.Mul(p.BuyQuantity).Add(p.BuyCommission).Div(p.BuyQuantity)
	}
	if p.SellQuantity.IsZero() {
		return decimal.Zero
	}
	return p.AvgSold.Mul(p.SellQuantity).Sub(p.SellCommission).Div(p.SellQuantity)
}

// RealisedPnL:
//
//	LONG:  (avgSold - avgBought) * sellQuantity - (sellQuantity/buyQuantity) * buyCommission - sellCommission
//	SHORT: (avgSold - avgBought) * buyQuantity  - (buyQuantity/sellQuantity) * sellCommission - buyCommission
func (p *Position) RealisedPnL() decimal.Decimal {
	if p.Side == PositionSideLong {
		if p.SellQuantity.IsZero() || p.BuyQuantity.IsZero() {
			return decimal.Zero
		}
		gross := p.AvgSold.Sub(p.AvgBought).Mul(p.SellQuantity)
		commissionShare := p.SellQuantity.Div(p.BuyQuantity).Mul(p.BuyCommission)
		return gross.Sub(commissionShare).Sub(p.SellCommission)
	}

	if p.BuyQuantity.IsZero() || p.SellQuantity.IsZero() {
		return decimal.Zero
	}
	gross := p.AvgSold.Sub(p.AvgBought).Mul(p.BuyQuantity)
	commissionShare := p.BuyQuantity.Div(p.SellQuantity).Mul(p.SellCommission)
	return gross.Sub(commissionShare).Sub(p.BuyCommission)
}

// UnrealisedPnL is (currentPrice - avgPrice) * netQuantity; negative
// netQuantity (a SHORT) makes this negative when price has risen.
func (p *Position) UnrealisedPnL() decimal.Decimal {
	return p.CurrentPrice.Sub(p.AvgPrice()).Mul(p.NetQuantity())
}

// MarketValue is currentPrice * netQuantity — negative for a SHORT,
// representing a liability.
func (p *Position) MarketValue() decimal.Decimal {
	return p.CurrentPrice.Mul(p.NetQuantity())
}

// Average applies the running-average update used when adding to a
// position's open side:
//
//	newAvg = (oldAvg*oldQty + addQty*addPrice) / (oldQty + addQty)
func Average(oldAvg, oldQty, addQty, addPrice decimal.Decimal) decimal.Decimal {
	newQty := oldQty.Add(addQty)
	if newQty.IsZero() {
		return decimal.Zero
	}
	return oldAvg.Mul(oldQty).Add(addQty.Mul(addPrice)).Div(newQty)
}
