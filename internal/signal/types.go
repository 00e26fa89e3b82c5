// Package signal evaluates indicator snapshots against a table of
// per-timeframe strategies and emits deduplicated, cooldown-gated trading
// signals.
package signal

import (
	"time"

	"github.com/w000nab0/aurafx/internal/candle"
	"github.com/w000nab0/aurafx/internal/indicator"
	"github.com/w000nab0/aurafx/internal/position"
)

// Direction aliases position.Direction so callers don't need to import
// both packages for a BUY/SELL value.
type Direction = position.Direction

const (
	DirectionBuy  = position.DirectionBuy
	DirectionSell = position.DirectionSell
)

// TradeAction classifies the position-side effect of a signal, assigned
// after PositionManager.HandleSignal runs.
type TradeAction string

const (
	ActionOpen    TradeAction = "OPEN"
	ActionClose   TradeAction = "CLOSE"
	ActionReverse TradeAction = "REVERSE"
	ActionNone    TradeAction = "NONE"
)

// Event is one emitted trading signal.
type Event struct {
	Strategy    string
	Symbol      string
	Timeframe   string
	Direction   Direction
	Price       float64
	OccurredAt  time.Time
	Indicator   indicator.Snapshot
	TradeAction TradeAction
	PnL         float64
	Pips        float64
}

// Context is everything a strategy handler needs to evaluate one closed
// candle. LookupSnapshot resolves another timeframe's latest snapshot,
// used by strategies that gate on a higher timeframe's trend.
type Context struct {
	Symbol           string
	Timeframe        string
	TimeframeSeconds int
	Price            float64
	Current          indicator.Snapshot
	Previous         indicator.Snapshot
	HasPrevious      bool
	Candles          []candle.Candle
	PipSize          float64
	BBKey            string
	LookupSnapshot   func(timeframe string) (indicator.Snapshot, bool)
}

// Strategy is a named, pure evaluation function over a Context. A handler
// returns ok=false when its condition does not fire.
type Strategy struct {
	Name    string
	Handler func(Context) (Direction, bool)
}
