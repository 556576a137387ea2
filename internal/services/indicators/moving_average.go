package indicators

import "iter"

// SMA yields the simple moving average of every full window of length period.
// The sequence has len(prices)-period+1 values and is computed lazily.
func SMA(prices []float64, period int) (iter.Seq[float64], error) {
	if period < 1 {
		return nil, insufficient("sma", 1, period)
	}
	if len(prices) < period {
		return nil, insufficient("sma", period, len(prices))
	}
	return func(yield func(float64) bool) {
		var sum float64
		for i := 0; i < period; i++ {
			sum += prices[i]
		}
		if !yield(sum / float64(period)) {
			return
		}
		for i := period; i < len(prices); i++ {
			sum += prices[i] - prices[i-period]
			if !yield(sum / float64(period)) {
				return
			}
		}
	}, nil
}

// SMASlice materializes SMA.
func SMASlice(prices []float64, period int) ([]float64, error) {
	seq, err := SMA(prices, period)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(prices)-period+1)
	for v := range seq {
		out = append(out, v)
	}
	return out, nil
}

// EMA returns the exponential moving average aligned to prices, seeded with prices[0].
func EMA(prices []float64, period int) ([]float64, error) {
	if len(prices) == 0 {
		return nil, insufficient("ema", 1, 0)
	}
	if period < 1 {
		return nil, insufficient("ema", 1, period)
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(prices))
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = prices[i]*k + out[i-1]*(1-k)
	}
	return out, nil
}
