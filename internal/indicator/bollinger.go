package indicator

// bollinger computes the Bollinger Band triple (lower/mid/upper) over the
// last `period` closes at `sigma` standard deviations.
func bollinger(closes []float64, period int, sigma float64) (Band, bool) {
	if period <= 0 || len(closes) < period {
		return Band{}, false
	}
	window := closes[len(closes)-period:]
	mid := mean(window)
	sd := stdDev(window)
	return Band{
		Lower: mid - sigma*sd,
		Mid:   mid,
		Upper: mid + sigma*sd,
	}, true
}
