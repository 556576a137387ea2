package models

// SignalType names one of the seven scoring rules.
type SignalType string

const (
	SignalRSIBreakthrough SignalType = "RSI Breakthrough"
	SignalMACDCrossover   SignalType = "MACD Crossover"
	SignalSMABreakthrough SignalType = "SMA Breakthrough"
	SignalNearResistance  SignalType = "Near Resistance"
	SignalLiquidityCross  SignalType = "Liquidity Cross"
	SignalVolumeIncrease  SignalType = "Volume Increase"
	SignalStrongTrend     SignalType = "Strong Trend"
)

// Signal records one fired rule.
type Signal struct {
	Type   SignalType `json:"type"`
	Value  float64    `json:"value"`
	Weight float64    `json:"weight"`
}

// IndicatorSnapshot is recomputed for every ticker on every cycle.
type IndicatorSnapshot struct {
	RSI            float64 `json:"rsi"`
	RSIPrevious    float64 `json:"rsiPrevious"`
	MACD           float64 `json:"macd"`
	MACDSignal     float64 `json:"macdSignal"`
	MACDCrossover  bool    `json:"macdCrossover"`
	SMA            float64 `json:"sma"`
	SMAPrevious    float64 `json:"smaPrevious"`
	PreviousPrice  float64 `json:"previousPrice"`
	Resistance     float64 `json:"resistance"`
	Support        float64 `json:"support"`
	NearResistance bool    `json:"nearResistance"`
	Liquidity      float64 `json:"liquidity"`
	LiquidityCross bool    `json:"liquidityCross"`
	VolumeChange   float64 `json:"volumeChange"`
	VolumeIncrease bool    `json:"volumeIncrease"`
	TrendStrength  float64 `json:"trendStrength"`
}

// NeutralSnapshot is used when an indicator cannot be computed.
func NeutralSnapshot() IndicatorSnapshot {
	return IndicatorSnapshot{RSI: 50, RSIPrevious: 50}
}
