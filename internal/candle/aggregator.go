package candle

import (
	"sort"
	"time"
)

type openKey struct {
	symbol    string
	timeframe int
}

// Aggregator turns a tick stream into OHLC candles for a fixed, sorted set
// of timeframes (in seconds). It is forward-only: a tick whose timestamp
// falls behind the currently open bucket is clamped into that bucket
// rather than reordering history.
type Aggregator struct {
	timeframes  []int
	historyCap  int
	open        map[openKey]Candle
	history     map[openKey]*ring
}

// NewAggregator builds an Aggregator for the given timeframes (seconds).
// historyCap bounds the closed-candle FIFO per (symbol, timeframe); 0
// selects the default of 500.
func NewAggregator(timeframes []int, historyCap int) *Aggregator {
	sorted := append([]int(nil), timeframes...)
	sort.Ints(sorted)
	return &Aggregator{
		timeframes: sorted,
		historyCap: historyCap,
		open:       make(map[openKey]Candle),
		history:    make(map[openKey]*ring),
	}
}

// Timeframes returns the configured timeframes in ascending order.
func (a *Aggregator) Timeframes() []int {
	return append([]int(nil), a.timeframes...)
}

// AddTick feeds one tick into every configured timeframe and returns the
// candles that closed as a result (empty when no bucket rolled over,
// possibly more than one when several timeframes roll simultaneously).
func (a *Aggregator) AddTick(symbol string, price, volume float64, ts time.Time) []Closed {
	var closed []Closed
	for _, tf := range a.timeframes {
		key := openKey{symbol: symbol, timeframe: tf}
		bucket := bucketStart(ts, tf)
		current, exists := a.open[key]

		if !exists {
			a.open[key] = Candle{
				Symbol:           symbol,
				TimeframeSeconds: tf,
				BucketStart:      bucket,
				Open:             price,
				High:             price,
				Low:              price,
				Close:            price,
				Volume:           volume,
			}
			continue
		}

		if bucket.Before(current.BucketStart) {
			// Late tick: clamp into the existing open candle, never reorder.
			bucket = current.BucketStart
		}

		if bucket.After(current.BucketStart) {
			a.closeCandle(key, current)
			closed = append(closed, Closed{Symbol: symbol, TimeframeSeconds: tf, Candle: current})
			a.open[key] = Candle{
				Symbol:           symbol,
				TimeframeSeconds: tf,
				BucketStart:      bucket,
				Open:             price,
				High:             price,
				Low:              price,
				Close:            price,
				Volume:           volume,
			}
			continue
		}

		// Same bucket: update in place.
		if price > current.High {
			current.High = price
		}
		if price < current.Low {
			current.Low = price
		}
		current.Close = price
		current.Volume += volume
		a.open[key] = current
	}
	return closed
}

func (a *Aggregator) closeCandle(key openKey, c Candle) {
	r, ok := a.history[key]
	if !ok {
		r = newRing(a.historyCap)
		a.history[key] = r
	}
	r.push(c)
}

// FlushOpen closes every currently open candle without requiring a
// boundary-crossing tick, appends it to history, and returns the closed
// candles. Used on shutdown.
func (a *Aggregator) FlushOpen() []Closed {
	var closed []Closed
	for key, c := range a.open {
		a.closeCandle(key, c)
		closed = append(closed, Closed{Symbol: key.symbol, TimeframeSeconds: key.timeframe, Candle: c})
		delete(a.open, key)
	}
	return closed
}

// GetCandles returns the closed-candle history (oldest first) for a
// (symbol, timeframe) pair.
func (a *Aggregator) GetCandles(symbol string, timeframeSeconds int) []Candle {
	r, ok := a.history[openKey{symbol: symbol, timeframe: timeframeSeconds}]
	if !ok {
		return nil
	}
	return r.all()
}

// GetLast returns the n most recent closed candles for (symbol, timeframe).
func (a *Aggregator) GetLast(symbol string, timeframeSeconds, n int) []Candle {
	r, ok := a.history[openKey{symbol: symbol, timeframe: timeframeSeconds}]
	if !ok {
		return nil
	}
	return r.last(n)
}

// OpenCandle returns the currently-open candle for (symbol, timeframe), if any.
func (a *Aggregator) OpenCandle(symbol string, timeframeSeconds int) (Candle, bool) {
	c, ok := a.open[openKey{symbol: symbol, timeframe: timeframeSeconds}]
	return c, ok
}
