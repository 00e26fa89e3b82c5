package stream

import "testing"

func TestParseTickMidPrice(t *testing.T) {
	tick, ok := parseTick([]byte(`{"symbol":"USD_JPY","timestamp":"2024-01-01T00:00:00Z","bid":150.0,"ask":150.02,"volume":"1000"}`))
	if !ok {
		t.Fatalf("expected tick to parse")
	}
	if tick.Price() != 150.01 {
		t.Fatalf("expected mid price 150.01, got %v", tick.Price())
	}
	spread, ok := tick.Spread()
	if !ok || spread < 0.0199 || spread > 0.0201 {
		t.Fatalf("unexpected spread: %v ok=%v", spread, ok)
	}
	if !tick.HasVolume || tick.Volume != 1000 {
		t.Fatalf("expected volume 1000, got %v", tick.Volume)
	}
}

func TestParseTickFallsBackToLast(t *testing.T) {
	tick, ok := parseTick([]byte(`{"symbol":"USD_JPY","timestamp":"2024-01-01T00:00:00Z","last":150.5}`))
	if !ok {
		t.Fatalf("expected tick to parse")
	}
	if tick.Price() != 150.5 {
		t.Fatalf("expected last price 150.5, got %v", tick.Price())
	}
	if _, ok := tick.Spread(); ok {
		t.Fatalf("expected no spread without both bid and ask")
	}
}

func TestParseTickFallsBackToPriceField(t *testing.T) {
	tick, ok := parseTick([]byte(`{"symbol":"USD_JPY","timestamp":"2024-01-01T00:00:00Z","price":151.0}`))
	if !ok || tick.Price() != 151.0 {
		t.Fatalf("expected price field fallback, got tick=%+v ok=%v", tick, ok)
	}
}

func TestParseTickRejectsFrameWithoutSymbol(t *testing.T) {
	if _, ok := parseTick([]byte(`{"result":"ok"}`)); ok {
		t.Fatalf("expected subscription ack frame to be rejected as a tick")
	}
}

func TestParseTickDefaultsMissingTimestamp(t *testing.T) {
	tick, ok := parseTick([]byte(`{"symbol":"USD_JPY","last":150.0}`))
	if !ok {
		t.Fatalf("expected tick to parse despite missing timestamp")
	}
	if tick.Timestamp.IsZero() {
		t.Fatalf("expected a defaulted timestamp")
	}
}
