package signal

import (
	"testing"
	"time"

	"github.com/w000nab0/aurafx/internal/candle"
	"github.com/w000nab0/aurafx/internal/indicator"
)

func mkCandle(minute int, open, high, low, close float64) candle.Candle {
	return candle.Candle{
		Symbol: "USD_JPY", TimeframeSeconds: 60,
		BucketStart: time.Date(2024, 1, 1, 0, minute, 0, 0, time.UTC),
		Open: open, High: high, Low: low, Close: close,
	}
}

func TestMATouchBounceBuyOnUptrend(t *testing.T) {
	ctx := Context{
		Current: indicator.Snapshot{SMA: map[string]float64{"21": 100.0}, Trend: indicator.Trend{Direction: "up"}},
		Candles: []candle.Candle{mkCandle(0, 99.5, 100.5, 99.0, 100.2)},
	}
	dir, ok := maTouchBounce(ctx)
	if !ok || dir != DirectionBuy {
		t.Fatalf("expected BUY, got dir=%v ok=%v", dir, ok)
	}
}

func TestMATouchBounceNoSignalWhenSMAOutsideRange(t *testing.T) {
	ctx := Context{
		Current: indicator.Snapshot{SMA: map[string]float64{"21": 90.0}, Trend: indicator.Trend{Direction: "up"}},
		Candles: []candle.Candle{mkCandle(0, 99.5, 100.5, 99.0, 100.2)},
	}
	if _, ok := maTouchBounce(ctx); ok {
		t.Fatalf("expected no signal when sma21 outside last candle's range")
	}
}

func TestMACrossBuyOnGoldenCrossInUptrend(t *testing.T) {
	ctx := Context{
		HasPrevious: true,
		Current:     indicator.Snapshot{SMA: map[string]float64{"5": 101.0, "21": 100.5}, Trend: indicator.Trend{Direction: "up"}},
		Previous:    indicator.Snapshot{SMA: map[string]float64{"5": 99.5, "21": 100.5}},
	}
	dir, ok := maCross(ctx)
	if !ok || dir != DirectionBuy {
		t.Fatalf("expected BUY cross, got dir=%v ok=%v", dir, ok)
	}
}

func TestMACrossNoSignalWithoutPreviousSnapshot(t *testing.T) {
	ctx := Context{HasPrevious: false, Current: indicator.Snapshot{SMA: map[string]float64{"5": 101.0, "21": 100.5}}}
	if _, ok := maCross(ctx); ok {
		t.Fatalf("expected no signal without a previous snapshot")
	}
}

func TestFakeBreakoutSellOnFailedUpsideBreak(t *testing.T) {
	base := []candle.Candle{
		mkCandle(0, 100, 101, 99, 100),
		mkCandle(1, 100, 101, 99, 100),
		mkCandle(2, 100, 101.2, 99, 100),
		mkCandle(3, 100, 101, 99, 100),
		mkCandle(4, 100, 101, 99, 100),
	}
	last := mkCandle(5, 100, 102, 100, 100.5) // pierces 101.2 high but closes back inside
	candles := append(base, last)

	ctx := Context{
		Current: indicator.Snapshot{Trend: indicator.Trend{Direction: "flat"}},
		Candles: candles,
		LookupSnapshot: func(string) (indicator.Snapshot, bool) {
			return indicator.Snapshot{Trend: indicator.Trend{Direction: "flat"}}, true
		},
	}
	dir, ok := fakeBreakout(ctx)
	if !ok || dir != DirectionSell {
		t.Fatalf("expected SELL on failed breakout, got dir=%v ok=%v", dir, ok)
	}
}

func TestFakeBreakoutRequiresBothTimeframesFlat(t *testing.T) {
	base := []candle.Candle{
		mkCandle(0, 100, 101, 99, 100),
		mkCandle(1, 100, 101, 99, 100),
		mkCandle(2, 100, 101.2, 99, 100),
		mkCandle(3, 100, 101, 99, 100),
		mkCandle(4, 100, 101, 99, 100),
	}
	last := mkCandle(5, 100, 102, 100, 100.5)
	candles := append(base, last)

	ctx := Context{
		Current: indicator.Snapshot{Trend: indicator.Trend{Direction: "flat"}},
		Candles: candles,
		LookupSnapshot: func(string) (indicator.Snapshot, bool) {
			return indicator.Snapshot{Trend: indicator.Trend{Direction: "up"}}, true
		},
	}
	if _, ok := fakeBreakout(ctx); ok {
		t.Fatalf("expected no signal when the 5m trend is not flat")
	}
}

func TestTrendPullbackBuyOnUptrendTouch(t *testing.T) {
	ctx := Context{
		Price:   100.6,
		Current: indicator.Snapshot{SMA: map[string]float64{"5": 100.0, "21": 99.0}, Trend: indicator.Trend{Direction: "up"}},
		Candles: []candle.Candle{mkCandle(0, 100.5, 100.8, 99.8, 100.6)},
	}
	dir, ok := trendPullback(ctx)
	if !ok || dir != DirectionBuy {
		t.Fatalf("expected BUY pullback, got dir=%v ok=%v", dir, ok)
	}
}

func TestBBMeanReversionSellAtUpperBand(t *testing.T) {
	ctx := Context{
		Price: 106.0,
		BBKey: "21_2.0",
		Current: indicator.Snapshot{
			RSI:   map[string]float64{"14": 75},
			BB:    map[string]indicator.Band{"21_2.0": {Upper: 105.5, Lower: 104.5, Mid: 105.0}},
			Trend: indicator.Trend{Direction: "flat"},
		},
	}
	dir, ok := bbMeanReversion(ctx)
	if !ok || dir != DirectionSell {
		t.Fatalf("expected SELL at upper band, got dir=%v ok=%v", dir, ok)
	}
}
