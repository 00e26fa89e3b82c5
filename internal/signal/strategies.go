package signal

// strategiesByTimeframe is the table of pure strategy functions dispatched
// per timeframe label, chosen over runtime polymorphism per the design
// note against an interface-per-strategy hierarchy for what is, in
// practice, a fixed and small rule set.
var strategiesByTimeframe = map[string][]Strategy{
	"1m": {
		{Name: "bb_mean_reversion", Handler: bbMeanReversion},
		{Name: "ma_touch_bounce", Handler: maTouchBounce},
		{Name: "fake_breakout", Handler: fakeBreakout},
		{Name: "ma_cross", Handler: maCross},
		{Name: "trend_pullback", Handler: trendPullback},
	},
	"5m": {
		{Name: "ma_touch_bounce", Handler: maTouchBounce},
	},
}

// StrategiesFor returns the strategies registered for timeframe, or nil.
func StrategiesFor(timeframe string) []Strategy {
	return strategiesByTimeframe[timeframe]
}

func bbMeanReversion(ctx Context) (Direction, bool) {
	band, ok := ctx.Current.BB[ctx.BBKey]
	if !ok {
		return "", false
	}
	rsi14, ok := ctx.Current.RSI["14"]
	if !ok {
		return "", false
	}
	trend := ctx.Current.Trend.Direction

	if ctx.Price >= band.Upper && rsi14 >= 70 && (trend == "flat" || trend == "up") {
		return DirectionSell, true
	}
	if ctx.Price <= band.Lower && rsi14 <= 30 && (trend == "flat" || trend == "down") {
		return DirectionBuy, true
	}
	return "", false
}

func maTouchBounce(ctx Context) (Direction, bool) {
	sma21, ok := ctx.Current.SMA["21"]
	if !ok || len(ctx.Candles) == 0 {
		return "", false
	}
	last := ctx.Candles[len(ctx.Candles)-1]
	if sma21 < last.Low || sma21 > last.High {
		return "", false
	}
	switch ctx.Current.Trend.Direction {
	case "up":
		if last.Close > sma21 {
			return DirectionBuy, true
		}
	case "down":
		if last.Close < sma21 {
			return DirectionSell, true
		}
	}
	return "", false
}

const fakeBreakoutBaseCandles = 5

func fakeBreakout(ctx Context) (Direction, bool) {
	if len(ctx.Candles) < fakeBreakoutBaseCandles+1 {
		return "", false
	}
	if ctx.Current.Trend.Direction != "flat" {
		return "", false
	}
	// The indicator store keys snapshots by timeframe seconds ("300" is 5m).
	otherSnap, ok := ctx.LookupSnapshot("300")
	if !ok || otherSnap.Trend.Direction != "flat" {
		return "", false
	}

	n := len(ctx.Candles)
	base := ctx.Candles[n-1-fakeBreakoutBaseCandles : n-1]
	last := ctx.Candles[n-1]

	recentHigh, recentLow := base[0].High, base[0].Low
	for _, c := range base {
		if c.High > recentHigh {
			recentHigh = c.High
		}
		if c.Low < recentLow {
			recentLow = c.Low
		}
	}

	if last.High > recentHigh && last.Close <= recentHigh {
		return DirectionSell, true
	}
	if last.Low < recentLow && last.Close >= recentLow {
		return DirectionBuy, true
	}
	return "", false
}

func maCross(ctx Context) (Direction, bool) {
	if !ctx.HasPrevious {
		return "", false
	}
	sma5, ok1 := ctx.Current.SMA["5"]
	sma21, ok2 := ctx.Current.SMA["21"]
	prevSMA5, ok3 := ctx.Previous.SMA["5"]
	prevSMA21, ok4 := ctx.Previous.SMA["21"]
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return "", false
	}

	trend := ctx.Current.Trend.Direction
	if trend == "up" && prevSMA5 <= prevSMA21 && sma5 > sma21 {
		return DirectionBuy, true
	}
	if trend == "down" && prevSMA5 >= prevSMA21 && sma5 < sma21 {
		return DirectionSell, true
	}
	return "", false
}

func trendPullback(ctx Context) (Direction, bool) {
	sma5, ok1 := ctx.Current.SMA["5"]
	sma21, ok2 := ctx.Current.SMA["21"]
	if !ok1 || !ok2 || len(ctx.Candles) == 0 {
		return "", false
	}
	last := ctx.Candles[len(ctx.Candles)-1]
	touchedSMA5 := sma5 >= last.Low && sma5 <= last.High

	switch ctx.Current.Trend.Direction {
	case "up":
		if touchedSMA5 && ctx.Price > sma21 {
			return DirectionBuy, true
		}
	case "down":
		if touchedSMA5 && ctx.Price < sma21 {
			return DirectionSell, true
		}
	}
	return "", false
}
