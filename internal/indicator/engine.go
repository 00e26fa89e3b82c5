package indicator

import (
	"fmt"
	"math"
	"strconv"

	"github.com/w000nab0/aurafx/internal/candle"
)

// Config holds the static engine parameters: periods to compute,
// Bollinger sigmas, the trend window/threshold, and the bounded
// rolling-frame size.
type Config struct {
	SMAPeriods        []int
	RSIPeriods        []int
	RCIPeriods        []int
	BBPeriod          int
	BBSigmas          []float64
	ATRPeriods        []int
	TrendSMAPeriod    int
	TrendWindow       int
	TrendThresholdPip float64
	PipSize           float64
	MaxRows           int
}

type frame struct {
	timestamps []int64
	opens      []float64
	highs      []float64
	lows       []float64
	closes     []float64
	volumes    []float64
}

func (f *frame) append(c candle.Candle, maxRows int) {
	f.timestamps = append(f.timestamps, c.BucketStart.Unix())
	f.opens = append(f.opens, c.Open)
	f.highs = append(f.highs, c.High)
	f.lows = append(f.lows, c.Low)
	f.closes = append(f.closes, c.Close)
	f.volumes = append(f.volumes, c.Volume)
	if maxRows > 0 && len(f.closes) > maxRows {
		cut := len(f.closes) - maxRows
		f.timestamps = f.timestamps[cut:]
		f.opens = f.opens[cut:]
		f.highs = f.highs[cut:]
		f.lows = f.lows[cut:]
		f.closes = f.closes[cut:]
		f.volumes = f.volumes[cut:]
	}
}

// Engine computes indicator snapshots from closed candles and stores the
// latest one per (symbol, timeframe) in a Store.
type Engine struct {
	cfg    Config
	store  *Store
	frames map[frameKey]*frame
}

type frameKey struct {
	symbol    string
	timeframe int
}

// NewEngine creates an Engine backed by the given store.
func NewEngine(cfg Config, store *Store) *Engine {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 1000
	}
	return &Engine{cfg: cfg, store: store, frames: make(map[frameKey]*frame)}
}

func (e *Engine) Store() *Store { return e.store }

// TrendSMAPeriod returns the SMA period the trend regression runs over.
func (e *Engine) TrendSMAPeriod() int { return e.cfg.TrendSMAPeriod }

// SetTrendSMAPeriod changes the trend SMA period going forward.
func (e *Engine) SetTrendSMAPeriod(period int) { e.cfg.TrendSMAPeriod = period }

// TrendThresholdPips returns the slope magnitude (in pips) required for
// the trend to be considered up/down rather than flat.
func (e *Engine) TrendThresholdPips() float64 { return e.cfg.TrendThresholdPip }

// SetTrendThresholdPips changes the trend threshold going forward.
func (e *Engine) SetTrendThresholdPips(pips float64) { e.cfg.TrendThresholdPip = pips }

// HandleCandle appends a just-closed candle to the rolling frame for
// (symbol, timeframeSeconds), recomputes every configured indicator over
// the full window, stores the resulting snapshot and returns it.
func (e *Engine) HandleCandle(symbol string, timeframeSeconds int, c candle.Candle) Snapshot {
	key := frameKey{symbol: symbol, timeframe: timeframeSeconds}
	fr, ok := e.frames[key]
	if !ok {
		fr = &frame{}
		e.frames[key] = fr
	}
	fr.append(c, e.cfg.MaxRows)

	tfLabel := strconv.Itoa(timeframeSeconds)
	snap := Snapshot{
		Symbol:    symbol,
		Timeframe: tfLabel,
		Timestamp: c.BucketStart,
		Close:     c.Close,
		SMA:       map[string]float64{},
		RSI:       map[string]float64{},
		RCI:       map[string]float64{},
		BB:        map[string]Band{},
		ATR:       map[string]float64{},
	}

	for _, p := range e.cfg.SMAPeriods {
		if v, ok := smaLast(fr.closes, p); ok {
			snap.SMA[strconv.Itoa(p)] = v
		}
	}
	for _, p := range e.cfg.RSIPeriods {
		if v, ok := rsiWilder(fr.closes, p); ok {
			snap.RSI[strconv.Itoa(p)] = v
		}
	}
	for _, p := range e.cfg.RCIPeriods {
		if v, ok := rci(fr.closes, p); ok {
			snap.RCI[strconv.Itoa(p)] = v
		}
	}
	if e.cfg.BBPeriod > 0 {
		for _, sigma := range e.cfg.BBSigmas {
			if b, ok := bollinger(fr.closes, e.cfg.BBPeriod, sigma); ok {
				snap.BB[bbKey(e.cfg.BBPeriod, sigma)] = b
			}
		}
	}
	for _, p := range e.cfg.ATRPeriods {
		if v, ok := atrWilder(fr.highs, fr.lows, fr.closes, p); ok {
			snap.ATR[strconv.Itoa(p)] = v
		}
	}

	snap.Trend = e.trend(fr)

	e.store.SetSnapshot(snap)
	return snap
}

// trend computes the regression-slope trend reading over the last
// TrendWindow non-NaN values of the TrendSMAPeriod SMA series.
func (e *Engine) trend(fr *frame) Trend {
	t := Trend{Method: "regression", Window: e.cfg.TrendWindow}
	if e.cfg.TrendSMAPeriod <= 0 || e.cfg.TrendWindow <= 0 {
		t.Direction = "flat"
		return t
	}
	smaSeries := smaSeriesValues(fr.closes, e.cfg.TrendSMAPeriod)
	if len(fr.closes) < e.cfg.TrendSMAPeriod || len(smaSeries) < e.cfg.TrendWindow {
		t.Direction = "flat"
		return t
	}
	window := smaSeries[len(smaSeries)-e.cfg.TrendWindow:]
	slope, _ := linearRegression(window)
	t.Slope = slope
	t.HasSlope = true
	t.Ready = true
	if e.cfg.PipSize > 0 {
		t.SlopePips = slope / e.cfg.PipSize
	}
	switch {
	case t.SlopePips > e.cfg.TrendThresholdPip:
		t.Direction = "up"
	case t.SlopePips < -e.cfg.TrendThresholdPip:
		t.Direction = "down"
	default:
		t.Direction = "flat"
	}
	return t
}

func bbKey(period int, sigma float64) string {
	return BBKey(period, sigma)
}

// BBKey renders the Bollinger band map key for a given period/sigma pair
// (e.g. "20_2.0"), shared with callers outside the package that need to
// look a band up by its configured parameters.
func BBKey(period int, sigma float64) string {
	return fmt.Sprintf("%d_%s", period, formatSigma(sigma))
}

func formatSigma(sigma float64) string {
	if sigma == math.Trunc(sigma) {
		return strconv.FormatFloat(sigma, 'f', 1, 64)
	}
	return strconv.FormatFloat(sigma, 'f', -1, 64)
}

// smaSeriesValues returns the full rolling-mean series (one value per
// window ending at each index >= period-1), used only for the trend
// regression input.
func smaSeriesValues(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	out := make([]float64, 0, len(closes)-period+1)
	for i := period - 1; i < len(closes); i++ {
		out = append(out, mean(closes[i-period+1:i+1]))
	}
	return out
}

func smaLast(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	return mean(closes[len(closes)-period:]), true
}
