package signal

import (
	"time"

	"github.com/w000nab0/aurafx/internal/blackout"
	"github.com/w000nab0/aurafx/internal/candle"
	"github.com/w000nab0/aurafx/internal/indicator"
)

// Config tunes the engine's gating behavior.
type Config struct {
	Cooldown         time.Duration
	HistoryLimit     int
	ATRThresholdPips float64
	BBKey            string
	PipSize          float64
}

// DefaultConfig mirrors the venue's defaults: 30s cooldown, 200-deep
// per-strategy history, a 20-period 2-sigma Bollinger band.
func DefaultConfig() Config {
	return Config{Cooldown: 30 * time.Second, HistoryLimit: 200, BBKey: "20_2.0"}
}

type snapshotKey struct {
	symbol    string
	timeframe string
}

type dedupKey struct {
	strategy  string
	symbol    string
	timeframe string
	direction Direction
}

type cooldownKey struct {
	strategy  string
	symbol    string
	timeframe string
	direction Direction
}

// Engine evaluates closed candles against the strategy table, applying
// blackout/trend-readiness/ATR gates plus per-strategy dedup and cooldown.
// It is intended to be driven exclusively by the pipeline task.
type Engine struct {
	cfg      Config
	calendar *blackout.Calendar
	store    *indicator.Store

	prevSnapshot map[snapshotKey]indicator.Snapshot
	lastEmitTS   map[dedupKey]time.Time
	lastEmitAt   map[cooldownKey]time.Time
	history      map[string][]Event
}

// NewEngine builds an Engine. store is used to look up other timeframes'
// latest snapshots (e.g. fake_breakout's 5m trend gate).
func NewEngine(cfg Config, calendar *blackout.Calendar, store *indicator.Store) *Engine {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	if cfg.BBKey == "" {
		cfg.BBKey = DefaultConfig().BBKey
	}
	return &Engine{
		cfg:          cfg,
		calendar:     calendar,
		store:        store,
		prevSnapshot: make(map[snapshotKey]indicator.Snapshot),
		lastEmitTS:   make(map[dedupKey]time.Time),
		lastEmitAt:   make(map[cooldownKey]time.Time),
		history:      make(map[string][]Event),
	}
}

// Evaluate runs every strategy registered for timeframe against snap and
// candles, admitting non-duplicate, non-cooled-down candidates.
func (e *Engine) Evaluate(symbol, timeframe string, timeframeSeconds int, price float64, snap indicator.Snapshot, ts time.Time, candles []candle.Candle) []Event {
	if e.calendar != nil && e.calendar.IsBlackout(ts) {
		return nil
	}
	if !snap.Trend.Ready {
		return nil
	}
	if timeframe == "1m" && e.cfg.ATRThresholdPips > 0 {
		atr14, ok := snap.ATR["14"]
		if !ok || e.cfg.PipSize == 0 || atr14/e.cfg.PipSize < e.cfg.ATRThresholdPips {
			return nil
		}
	}

	sk := snapshotKey{symbol: symbol, timeframe: timeframe}
	prev, hasPrev := e.prevSnapshot[sk]

	ctx := Context{
		Symbol:           symbol,
		Timeframe:        timeframe,
		TimeframeSeconds: timeframeSeconds,
		Price:            price,
		Current:          snap,
		Previous:         prev,
		HasPrevious:      hasPrev,
		Candles:          candles,
		PipSize:          e.cfg.PipSize,
		BBKey:            e.cfg.BBKey,
		LookupSnapshot: func(otherTimeframe string) (indicator.Snapshot, bool) {
			if e.store == nil {
				return indicator.Snapshot{}, false
			}
			return e.store.GetSnapshot(symbol, otherTimeframe)
		},
	}

	var admitted []Event
	for _, strat := range StrategiesFor(timeframe) {
		direction, ok := strat.Handler(ctx)
		if !ok {
			continue
		}
		event := Event{
			Strategy:   strat.Name,
			Symbol:     symbol,
			Timeframe:  timeframe,
			Direction:  direction,
			Price:      price,
			OccurredAt: ts,
			Indicator:  snap,
		}
		if e.admit(event, snap.Timestamp) {
			admitted = append(admitted, event)
		}
	}

	e.prevSnapshot[sk] = snap
	return admitted
}

// ATRThresholdPips returns the minimum 1m ATR (in pips) required to admit
// a signal.
func (e *Engine) ATRThresholdPips() float64 { return e.cfg.ATRThresholdPips }

// SetATRThresholdPips changes the ATR gate threshold going forward.
func (e *Engine) SetATRThresholdPips(pips float64) { e.cfg.ATRThresholdPips = pips }

func (e *Engine) admit(event Event, indicatorTS time.Time) bool {
	dk := dedupKey{strategy: event.Strategy, symbol: event.Symbol, timeframe: event.Timeframe, direction: event.Direction}
	if last, ok := e.lastEmitTS[dk]; ok && last.Equal(indicatorTS) {
		return false
	}
	ck := cooldownKey{strategy: event.Strategy, symbol: event.Symbol, timeframe: event.Timeframe, direction: event.Direction}
	if last, ok := e.lastEmitAt[ck]; ok && event.OccurredAt.Sub(last) < e.cfg.Cooldown {
		return false
	}
	e.register(event, indicatorTS, ck, dk)
	return true
}

// RecordCloseEvent registers a position-close-derived signal directly,
// bypassing the dedup/cooldown gates that apply to strategy-sourced
// signals: close events always register.
func (e *Engine) RecordCloseEvent(event Event) {
	dk := dedupKey{strategy: event.Strategy, symbol: event.Symbol, timeframe: event.Timeframe, direction: event.Direction}
	ck := cooldownKey{strategy: event.Strategy, symbol: event.Symbol, timeframe: event.Timeframe, direction: event.Direction}
	e.register(event, event.Indicator.Timestamp, ck, dk)
}

func (e *Engine) register(event Event, indicatorTS time.Time, ck cooldownKey, dk dedupKey) {
	e.lastEmitTS[dk] = indicatorTS
	e.lastEmitAt[ck] = event.OccurredAt

	hist := append(e.history[event.Strategy], event)
	if e.cfg.HistoryLimit > 0 && len(hist) > e.cfg.HistoryLimit {
		hist = hist[len(hist)-e.cfg.HistoryLimit:]
	}
	e.history[event.Strategy] = hist
}

// GetHistory returns the recorded events for strategy, or every strategy's
// events when strategy is empty: each strategy's events are contiguous and
// in chronological order, but the order of the strategies is not defined.
func (e *Engine) GetHistory(strategy string) []Event {
	if strategy != "" {
		return append([]Event(nil), e.history[strategy]...)
	}
	var all []Event
	for _, events := range e.history {
		all = append(all, events...)
	}
	return all
}

// Summary aggregates one strategy's totals.
type Summary struct {
	Strategy    string
	TotalEvents int
	Trades      int // OPEN + REVERSE count
	Closes      int
	Wins        int
	Losses      int
	WinRate     float64
	TotalPnL    float64
	AvgPnL      float64
	MaxProfit   float64
	MaxLoss     float64
}

// GetSummary computes per-strategy totals over events in [from, to]. A
// zero from/to bound is unbounded on that side. strategy restricts the
// result to a single strategy; empty returns one Summary per strategy
// that has recorded events in range.
func (e *Engine) GetSummary(strategy string, from, to time.Time) map[string]Summary {
	out := make(map[string]Summary)
	for name, events := range e.history {
		if strategy != "" && name != strategy {
			continue
		}
		s := summarize(name, events, from, to)
		if s.TotalEvents > 0 {
			out[name] = s
		}
	}
	return out
}

func summarize(name string, events []Event, from, to time.Time) Summary {
	s := Summary{Strategy: name}
	for _, ev := range events {
		if !from.IsZero() && ev.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && ev.OccurredAt.After(to) {
			continue
		}
		s.TotalEvents++
		switch ev.TradeAction {
		case ActionOpen, ActionReverse:
			s.Trades++
		case ActionClose:
			s.Closes++
			s.TotalPnL += ev.PnL
			if ev.Pips > 0 {
				s.Wins++
			} else if ev.Pips < 0 {
				s.Losses++
			}
			if ev.PnL > s.MaxProfit {
				s.MaxProfit = ev.PnL
			}
			if ev.PnL < s.MaxLoss {
				s.MaxLoss = ev.PnL
			}
		}
	}
	if s.Closes > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Closes)
		s.AvgPnL = s.TotalPnL / float64(s.Closes)
	}
	return s
}
