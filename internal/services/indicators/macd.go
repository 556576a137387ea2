package indicators

// MACDResult holds the three MACD series, each aligned to the input prices.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes EMA(fast) - EMA(slow), its signal EMA and the histogram.
func MACD(prices []float64, fast, slow, signal int) (MACDResult, error) {
	if len(prices) < slow {
		return MACDResult{}, insufficient("macd", slow, len(prices))
	}
	fastEMA, err := EMA(prices, fast)
	if err != nil {
		return MACDResult{}, err
	}
	slowEMA, err := EMA(prices, slow)
	if err != nil {
		return MACDResult{}, err
	}

	line := make([]float64, len(prices))
	for i := range prices {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	sig, err := EMA(line, signal)
	if err != nil {
		return MACDResult{}, err
	}
	hist := make([]float64, len(line))
	for i := range line {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{Line: line, Signal: sig, Histogram: hist}, nil
}

// CrossedAbove reports whether a crossed above b on the last bar.
func CrossedAbove(a, b []float64) bool {
	n := len(a)
	if n < 2 || len(b) != n {
		return false
	}
	return a[n-1] > b[n-1] && a[n-2] <= b[n-2]
}
