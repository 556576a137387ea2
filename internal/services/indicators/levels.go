package indicators

import "math"

// SupportResistance returns the lowest low and highest high over the last lookback bars.
func SupportResistance(highs, lows []float64, lookback int) (support, resistance float64, err error) {
	n := len(highs)
	if len(lows) < n {
		n = len(lows)
	}
	if lookback < 1 || n < lookback {
		return 0, 0, insufficient("support_resistance", lookback, n)
	}
	support = math.Inf(1)
	resistance = math.Inf(-1)
	for i := n - lookback; i < n; i++ {
		resistance = math.Max(resistance, highs[i])
		support = math.Min(support, lows[i])
	}
	return support, resistance, nil
}

// NearLevel reports whether price is within proximity (a fraction) of level.
func NearLevel(price, level, proximity float64) bool {
	if level <= 0 {
		return false
	}
	return math.Abs(price-level)/level <= proximity
}

// OBV is the cumulative on-balance volume series.
func OBV(closes, volumes []float64) ([]float64, error) {
	if len(closes) == 0 || len(volumes) != len(closes) {
		return nil, insufficient("obv", len(closes), len(volumes))
	}
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out, nil
}

// TrendStrength is the efficiency ratio of the last lookback bars, counted only
// for upward moves: |net change| / sum(|bar change|). Range [0,1].
func TrendStrength(closes []float64, lookback int) (float64, error) {
	if lookback < 1 || len(closes) < lookback+1 {
		return 0, insufficient("trend_strength", lookback+1, len(closes))
	}
	start := len(closes) - lookback - 1
	net := closes[len(closes)-1] - closes[start]
	if net <= 0 {
		return 0, nil
	}
	var path float64
	for i := start + 1; i < len(closes); i++ {
		path += math.Abs(closes[i] - closes[i-1])
	}
	if path == 0 {
		return 0, nil
	}
	return math.Min(1, net/path), nil
}

// VolumeChange compares the mean volume of the last period bars to the period
// before it and returns the change in percent.
func VolumeChange(volumes []float64, period int) (float64, error) {
	if period < 1 || len(volumes) < 2*period {
		return 0, insufficient("volume_change", 2*period, len(volumes))
	}
	n := len(volumes)
	var recent, prior float64
	for i := n - period; i < n; i++ {
		recent += volumes[i]
	}
	for i := n - 2*period; i < n-period; i++ {
		prior += volumes[i]
	}
	if prior == 0 {
		if recent > 0 {
			return 100, nil
		}
		return 0, nil
	}
	return (recent - prior) / prior * 100, nil
}
