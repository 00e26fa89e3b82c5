package signal

import (
	"testing"
	"time"

	"github.com/w000nab0/aurafx/internal/blackout"
	"github.com/w000nab0/aurafx/internal/indicator"
)

func snapshotFixture(ts time.Time, close, sma21, rsi14, bbUpper, bbLower float64) indicator.Snapshot {
	return indicator.Snapshot{
		Symbol:    "USD_JPY",
		Timeframe: "1m",
		Timestamp: ts,
		Close:     close,
		SMA:       map[string]float64{"21": sma21},
		RSI:       map[string]float64{"14": rsi14},
		RCI:       map[string]float64{},
		BB:        map[string]indicator.Band{"21_2.0": {Upper: bbUpper, Lower: bbLower, Mid: sma21}},
		Trend:     indicator.Trend{Direction: "flat", Ready: true, Method: "regression", Window: 10},
	}
}

func newTestEngine() *Engine {
	cfg := Config{Cooldown: 30 * time.Second, HistoryLimit: 200, BBKey: "21_2.0", PipSize: 0.001}
	return NewEngine(cfg, blackout.NewCalendar(), indicator.NewStore())
}

func TestSignalEngineEmitsAndRespectsCooldown(t *testing.T) {
	e := newTestEngine()
	baseTS := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC) // 12:00 JST, outside blackout

	snap := snapshotFixture(baseTS, 105.0, 105.0, 75.0, 105.5, 104.5)
	events := e.Evaluate("USD_JPY", "1m", 60, 106.0, snap, baseTS.Add(time.Second), nil)
	if len(events) != 1 || events[0].Direction != DirectionSell {
		t.Fatalf("expected one SELL event, got %+v", events)
	}

	// Same indicator timestamp -> suppressed.
	again := e.Evaluate("USD_JPY", "1m", 60, 106.5, snap, baseTS.Add(2*time.Second), nil)
	if len(again) != 0 {
		t.Fatalf("expected suppression on repeated indicator timestamp, got %+v", again)
	}

	// New indicator timestamp but still within cooldown -> suppressed.
	newSnap := snapshotFixture(baseTS.Add(10*time.Second), 105.2, 105.1, 72.0, 105.6, 104.6)
	stillSuppressed := e.Evaluate("USD_JPY", "1m", 60, 106.0, newSnap, baseTS.Add(15*time.Second), nil)
	if len(stillSuppressed) != 0 {
		t.Fatalf("expected suppression within cooldown window, got %+v", stillSuppressed)
	}
}

func TestSignalEngineSkipsDuringBlackout(t *testing.T) {
	e := newTestEngine()
	baseTS := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // 09:00 JST, inside default blackout

	snap := snapshotFixture(baseTS, 105.0, 105.0, 75.0, 105.5, 104.5)
	events := e.Evaluate("USD_JPY", "1m", 60, 106.0, snap, baseTS.Add(time.Second), nil)
	if len(events) != 0 {
		t.Fatalf("expected no events during blackout, got %+v", events)
	}
}

func TestSignalEngineSkipsWhenTrendNotReady(t *testing.T) {
	e := newTestEngine()
	baseTS := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	snap := snapshotFixture(baseTS, 105.0, 105.0, 75.0, 105.5, 104.5)
	snap.Trend.Ready = false

	events := e.Evaluate("USD_JPY", "1m", 60, 106.0, snap, baseTS.Add(time.Second), nil)
	if len(events) != 0 {
		t.Fatalf("expected no events when trend is not ready, got %+v", events)
	}
}

func TestRecordCloseEventBypassesCooldown(t *testing.T) {
	e := newTestEngine()
	baseTS := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		e.RecordCloseEvent(Event{
			Strategy:    "bb_mean_reversion",
			Symbol:      "USD_JPY",
			Timeframe:   "1m",
			Direction:   DirectionSell,
			OccurredAt:  baseTS.Add(time.Duration(i) * time.Second),
			TradeAction: ActionClose,
			PnL:         1.5,
			Pips:        3,
		})
	}
	history := e.GetHistory("bb_mean_reversion")
	if len(history) != 3 {
		t.Fatalf("expected 3 close events recorded without cooldown suppression, got %d", len(history))
	}
}

func TestGetSummaryComputesWinRate(t *testing.T) {
	e := newTestEngine()
	baseTS := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)

	e.RecordCloseEvent(Event{Strategy: "ma_cross", OccurredAt: baseTS, TradeAction: ActionClose, PnL: 10, Pips: 5})
	e.RecordCloseEvent(Event{Strategy: "ma_cross", OccurredAt: baseTS.Add(time.Minute), TradeAction: ActionClose, PnL: -4, Pips: -2})

	summaries := e.GetSummary("ma_cross", time.Time{}, time.Time{})
	s, ok := summaries["ma_cross"]
	if !ok {
		t.Fatalf("expected a summary for ma_cross")
	}
	if s.Closes != 2 || s.Wins != 1 || s.Losses != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.WinRate != 0.5 {
		t.Fatalf("expected win rate 0.5, got %v", s.WinRate)
	}
	if s.TotalPnL != 6 {
		t.Fatalf("expected total pnl 6, got %v", s.TotalPnL)
	}
}
