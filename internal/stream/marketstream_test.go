package stream

import (
	"testing"
	"time"

	"github.com/w000nab0/aurafx/internal/indicator"
	"github.com/w000nab0/aurafx/internal/position"
)

func testIndicatorEngine() *indicator.Engine {
	return indicator.NewEngine(indicator.Config{}, indicator.NewStore())
}

func TestTradeActionFromPositionEventsEmpty(t *testing.T) {
	if got := tradeActionFromPositionEvents(nil); got != "NONE" {
		t.Fatalf("expected NONE, got %v", got)
	}
}

func TestTradeActionFromPositionEventsOpen(t *testing.T) {
	events := []position.Event{{Type: position.EventOpen}}
	if got := tradeActionFromPositionEvents(events); got != "OPEN" {
		t.Fatalf("expected OPEN, got %v", got)
	}
}

func TestTradeActionFromPositionEventsClose(t *testing.T) {
	events := []position.Event{{Type: position.EventStopLoss}}
	if got := tradeActionFromPositionEvents(events); got != "CLOSE" {
		t.Fatalf("expected CLOSE, got %v", got)
	}
}

func TestSynthesizeCloseSignalFallsBackWhenNoSnapshot(t *testing.T) {
	m := &MarketStream{
		indicators: testIndicatorEngine(),
	}
	event := position.Event{
		Position:  position.Position{Symbol: "USD_JPY", Direction: position.DirectionBuy, Strategy: "default"},
		Price:     150.0,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PnL:       1.5,
		Pips:      3,
	}
	sig := m.synthesizeCloseSignal(event)
	if sig.Direction != position.DirectionSell {
		t.Fatalf("expected SELL signal closing a BUY position, got %v", sig.Direction)
	}
	if sig.TradeAction != "CLOSE" {
		t.Fatalf("expected CLOSE trade action, got %v", sig.TradeAction)
	}
}
