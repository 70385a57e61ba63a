// Package screener implements a minimal threshold screener: on each
// bar, adds tickers crossing a volume or price threshold to the
// tradable universe and drops ones that fall back below it, emitting a
// ScreenerUpdate the dispatcher drains in the canonical SCREENER
// position.
package screener

import (
	"github.com/shopspring/decimal"

	"github.com/coretrade/engine/pkg/types"
)

// Threshold gates one ticker's eligibility by minimum volume and/or
// minimum close price. A zero field disables that check.
type Threshold struct {
	MinVolume decimal.Decimal
	MinPrice  decimal.Decimal
}

func (t Threshold) passes(bar types.Bar) bool {
	if t.MinVolume.IsPositive() && bar.Volume.LessThan(t.MinVolume) {
		return false
	}
	if t.MinPrice.IsPositive() && bar.Close.LessThan(t.MinPrice) {
		return false
	}
	return true
}

// Screener evaluates a fixed watchlist of tickers against a Threshold on
// every bar and reports which should be added to or removed from the
// tradable universe.
type Screener struct {
	watchlist map[string]Threshold
	eligible  map[string]bool
}

// New returns a Screener over the given per-ticker thresholds.
func New(watchlist map[string]Threshold) *Screener {
	return &Screener{
		watchlist: watchlist,
		eligible:  make(map[string]bool, len(watchlist)),
	}
}

// Evaluate scans bars against the watchlist and returns a ScreenerUpdate
// naming tickers that newly pass or newly fail their threshold. Returns
// false if nothing changed, so callers can skip an empty event.
func (s *Screener) Evaluate(bars types.BarSet) (types.ScreenerUpdate, bool) {
	update := types.ScreenerUpdate{Time: bars.Time, Source: "screener"}

	for ticker, threshold := range s.watchlist {
		bar, ok := bars.Bars[ticker]
		if !ok {
			continue
		}
		passes := threshold.passes(bar)
		wasEligible := s.eligible[ticker]

		switch {
		case passes && !wasEligible:
			update.Add = append(update.Add, ticker)
			s.eligible[ticker] = true
		case !passes && wasEligible:
			update.Remove = append(update.Remove, ticker)
			s.eligible[ticker] = false
		}
	}

	if len(update.Add) == 0 && len(update.Remove) == 0 {
		return types.ScreenerUpdate{}, false
	}
	return update, true
}

// Watch adds or replaces a ticker's threshold.
func (s *Screener) Watch(ticker string, threshold Threshold) {
	s.watchlist[ticker] = threshold
}

// Unwatch drops a ticker from the screener entirely.
func (s *Screener) Unwatch(ticker string) {
	delete(s.watchlist, ticker)
	delete(s.eligible, ticker)
}
