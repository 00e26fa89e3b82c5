package position

import (
	"testing"
	"time"
)

var baseTS = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestManager(slPips, tpPips float64) *Manager {
	return NewManager(Config{
		PipSize:        0.001,
		LotSize:        100,
		StopLossPips:   slPips,
		TakeProfitPips: tpPips,
		FeeRate:        0.00002,
		TradingActive:  true,
	})
}

func TestOpenAndNoAutoReverse(t *testing.T) {
	m := newTestManager(20, 40)
	events := m.HandleSignal("USD_JPY", DirectionBuy, 150.0, baseTS, "")
	if len(events) != 1 || events[0].Type != EventOpen {
		t.Fatalf("expected single OPEN event, got %+v", events)
	}
	if events[0].FeePaid <= 0 || events[0].PnL != -events[0].FeePaid {
		t.Fatalf("unexpected open event economics: %+v", events[0])
	}
	if len(m.Positions()) != 1 {
		t.Fatalf("expected 1 open position")
	}

	// Opposite-direction signal for the same (symbol, strategy) key: no
	// auto-reverse, so this must be a no-op.
	reverse := m.HandleSignal("USD_JPY", DirectionSell, 150.2, baseTS, "")
	if len(reverse) != 0 {
		t.Fatalf("expected no events on same-key direction flip, got %+v", reverse)
	}
	if len(m.Positions()) != 1 {
		t.Fatalf("position count should be unchanged after no-op reverse attempt")
	}
}

func TestStopLossTrigger(t *testing.T) {
	m := newTestManager(10, 20)
	m.HandleSignal("USD_JPY", DirectionBuy, 150.0, baseTS, "")
	event, ok := m.EvaluatePrice("USD_JPY", 149.99, baseTS)
	if !ok || event.Type != EventStopLoss {
		t.Fatalf("expected STOP_LOSS, got %+v ok=%v", event, ok)
	}
	if len(m.Positions()) != 0 {
		t.Fatalf("position should be removed after stop loss")
	}
}

func TestManualCloseAtFavorablePriceHasPositivePnL(t *testing.T) {
	m := newTestManager(10, 20)
	m.HandleSignal("USD_JPY", DirectionSell, 150.0, baseTS, "")
	m.EvaluatePrice("USD_JPY", 150.005, baseTS) // updates last price, no trigger
	event, ok := m.ClosePosition("USD_JPY", 149.8, baseTS, "")
	if !ok {
		t.Fatalf("expected a close event")
	}
	if event.PnL <= 0 {
		t.Fatalf("expected positive pnl on favorable SELL close, got %v", event.PnL)
	}
}

func TestSeparateStrategiesHoldIndependentPositions(t *testing.T) {
	m := newTestManager(10, 20)
	m.HandleSignal("USD_JPY", DirectionBuy, 150.0, baseTS, "strat-a")
	m.HandleSignal("USD_JPY", DirectionSell, 150.0, baseTS, "strat-b")
	if len(m.Positions()) != 2 {
		t.Fatalf("expected 2 independent positions, got %d", len(m.Positions()))
	}
}

func TestNoEventsAfterClose(t *testing.T) {
	m := newTestManager(10, 20)
	m.HandleSignal("USD_JPY", DirectionBuy, 150.0, baseTS, "")
	m.ClosePosition("USD_JPY", 150.0, baseTS, "")
	if _, ok := m.EvaluatePrice("USD_JPY", 100.0, baseTS); ok {
		t.Fatalf("expected no further events for a removed position")
	}
}
