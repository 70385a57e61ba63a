// Package feed implements PriceFeed: the source of BarEvents the
// backtest driver pulls synchronously, or that a live worker thread
// pushes onto the global queue asynchronously.
package feed

import (
	"time"

	"github.com/coretrade/engine/pkg/types"
)

// PriceFeed yields one BarSet at a time. Next returns ok=false once the
// feed is exhausted (backtest) or permanently closed (live).
type PriceFeed interface {
	Next() (types.BarSet, bool)
	Close() error
}
