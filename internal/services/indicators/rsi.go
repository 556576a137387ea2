package indicators

// RSI computes Wilder's relative strength index over the whole series and
// returns the latest value. A series with no losses yields 100.
func RSI(prices []float64, period int) (float64, error) {
	if period < 1 {
		return 0, insufficient("rsi", 2, period)
	}
	if len(prices) < period+1 {
		return 0, insufficient("rsi", period+1, len(prices))
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	p := float64(period)
	for i := period + 1; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		var g, l float64
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
	}

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}
