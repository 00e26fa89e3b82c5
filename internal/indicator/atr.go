package indicator

// atrWilder computes Average True Range with Wilder's smoothing over the
// full high/low/close frame.
func atrWilder(highs, lows, closes []float64, period int) (float64, bool) {
	if period <= 0 || len(highs) < period+1 || len(highs) != len(lows) || len(highs) != len(closes) {
		return 0, false
	}

	trs := make([]float64, 0, len(highs)-1)
	for i := 1; i < len(highs); i++ {
		trs = append(trs, trueRange(highs[i], lows[i], closes[i-1]))
	}

	atr := mean(trs[:period])
	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}
	return atr, true
}
