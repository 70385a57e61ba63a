package feemodel

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestZero_AlwaysZero(t *testing.T) {
	fee, err := Zero{}.CalculateFee(dec("10"), dec("100"), "BUY", "MARKET", nil)
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
}

func TestZero_RejectsNonPositive(t *testing.T) {
	_, err := Zero{}.CalculateFee(dec("0"), dec("100"), "BUY", "MARKET", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPercent_DistinctRates(t *testing.T) {
	p := Percent{BuyRate: dec("0.001"), SellRate: dec("0.002")}
	buyFee, err := p.CalculateFee(dec("10"), dec("100"), "BUY", "MARKET", nil)
	require.NoError(t, err)
	assert.True(t, buyFee.Equal(dec("1")))

	sellFee, err := p.CalculateFee(dec("10"), dec("100"), "SELL", "MARKET", nil)
	require.NoError(t, err)
	assert.True(t, sellFee.Equal(dec("2")))
}

func TestMakerTaker_DerivesFromOrderType(t *testing.T) {
	m := MakerTaker{MakerRate: dec("0.001"), TakerRate: dec("0.002")}

	limitFee, err := m.CalculateFee(dec("10"), dec("100"), "BUY", "LIMIT", nil)
	require.NoError(t, err)
	assert.True(t, limitFee.Equal(dec("1")))

	marketFee, err := m.CalculateFee(dec("10"), dec("100"), "BUY", "MARKET", nil)
	require.NoError(t, err)
	assert.True(t, marketFee.Equal(dec("2")))
}

func TestMakerTaker_ExtrasOverride(t *testing.T) {
	m := MakerTaker{MakerRate: dec("0.001"), TakerRate: dec("0.002")}
	fee, err := m.CalculateFee(dec("10"), dec("100"), "BUY", "MARKET", map[string]interface{}{"isMaker": true})
	require.NoError(t, err)
	assert.True(t, fee.Equal(dec("1")))
}

func TestTiered_RejectsEmpty(t *testing.T) {
	_, err := NewTiered(nil)
	assert.Error(t, err)
}

func TestTiered_RejectsNonZeroFirstTier(t *testing.T) {
	_, err := NewTiered([]Tier{{VolumeThreshold: dec("100"), MakerRate: dec("0.001"), TakerRate: dec("0.002")}})
	assert.Error(t, err)
}

func TestTiered_SelectsActiveTierByVolume(t *testing.T) {
	tiered, err := NewTiered([]Tier{
		{VolumeThreshold: dec("0"), MakerRate: dec("0.002"), TakerRate: dec("0.003")},
		{VolumeThreshold: dec("100000"), MakerRate: dec("0.001"), TakerRate: dec("0.0015")},
	})
	require.NoError(t, err)

	fee, err := tiered.CalculateFee(dec("10"), dec("100"), "BUY", "MARKET", nil)
	require.NoError(t, err)
	assert.True(t, fee.Equal(dec("3")))

	tiered.AddToVolume(dec("150000"))
	fee, err = tiered.CalculateFee(dec("10"), dec("100"), "BUY", "MARKET", nil)
	require.NoError(t, err)
	assert.True(t, fee.Equal(dec("1.5")))

	tiered.ResetVolume()
	fee, err = tiered.CalculateFee(dec("10"), dec("100"), "BUY", "MARKET", nil)
	require.NoError(t, err)
	assert.True(t, fee.Equal(dec("3")))
}
