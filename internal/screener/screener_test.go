package screener

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretrade/engine/pkg/types"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestEvaluate_AddsTickerCrossingThreshold(t *testing.T) {
	s := New(map[string]Threshold{"BTCUSDT": {MinVolume: dec("1000")}})
	now := time.Now()

	update, changed := s.Evaluate(types.BarSet{Time: now, Bars: map[string]types.Bar{
		"BTCUSDT": {Ticker: "BTCUSDT", Volume: dec("500")},
	}})
	assert.False(t, changed)

	update, changed = s.Evaluate(types.BarSet{Time: now, Bars: map[string]types.Bar{
		"BTCUSDT": {Ticker: "BTCUSDT", Volume: dec("1500")},
	}})
	require.True(t, changed)
	assert.Equal(t, []string{"BTCUSDT"}, update.Add)
}

func TestEvaluate_RemovesTickerFallingBelowThreshold(t *testing.T) {
	s := New(map[string]Threshold{"BTCUSDT": {MinPrice: dec("100")}})
	now := time.Now()

	_, changed := s.Evaluate(types.BarSet{Time: now, Bars: map[string]types.Bar{"BTCUSDT": {Ticker: "BTCUSDT", Close: dec("150")}}})
	require.True(t, changed)

	update, changed := s.Evaluate(types.BarSet{Time: now, Bars: map[string]types.Bar{"BTCUSDT": {Ticker: "BTCUSDT", Close: dec("80")}}})
	require.True(t, changed)
	assert.Equal(t, []string{"BTCUSDT"}, update.Remove)
}

func TestEvaluate_NoChangeWhenStatusQuo(t *testing.T) {
	s := New(map[string]Threshold{"BTCUSDT": {MinPrice: dec("100")}})
	now := time.Now()
	s.Evaluate(types.BarSet{Time: now, Bars: map[string]types.Bar{"BTCUSDT": {Ticker: "BTCUSDT", Close: dec("150")}}})

	_, changed := s.Evaluate(types.BarSet{Time: now, Bars: map[string]types.Bar{"BTCUSDT": {Ticker: "BTCUSDT", Close: dec("160")}}})
	assert.False(t, changed)
}
