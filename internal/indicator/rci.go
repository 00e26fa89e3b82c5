package indicator

// rci computes the Spearman-like Rank Correlation Index over the last
// `period` closes: Spearman correlation between price rank (min-ties) and
// the linear time index 1..n, scaled to a -100..100 oscillator via
// 100 * (1 - 6*sum(d^2) / (n*(n^2-1))).
func rci(closes []float64, period int) (float64, bool) {
	if period < 2 || len(closes) < period {
		return 0, false
	}
	window := closes[len(closes)-period:]
	n := len(window)

	priceRanks := rankMinTies(window)
	var sumD2 float64
	for i := 0; i < n; i++ {
		timeRank := float64(i + 1)
		d := timeRank - priceRanks[i]
		sumD2 += d * d
	}

	denom := float64(n) * float64(n*n-1)
	if denom == 0 {
		return 0, false
	}
	return 100 * (1 - 6*sumD2/denom), true
}
