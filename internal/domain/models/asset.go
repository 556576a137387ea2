package models

import (
	"strings"
	"time"
)

// Where an asset's indicator values came from.
const (
	SourceOKX        = "okx"
	SourceClickHouse = "clickhouse"
	SourceSynthetic  = "synthetic"
	SourceNeutral    = "neutral"
)

// Strength buckets the number of fired signals.
type Strength string

const (
	StrengthVeryStrong Strength = "very_strong"
	StrengthGood       Strength = "good"
	StrengthPossible   Strength = "possible"
	StrengthNone       Strength = "none"
)

type Targets struct {
	Target1 float64 `json:"target1"`
	Target2 float64 `json:"target2"`
	Target3 float64 `json:"target3"`
}

type EntryPoints struct {
	Immediate float64 `json:"immediate"`
	Dip       float64 `json:"dip"`
	Breakout  float64 `json:"breakout"`
}

// Analysis is the trade plan derived from an asset's score.
type Analysis struct {
	Targets     Targets     `json:"targets"`
	StopLoss    float64     `json:"stopLoss"`
	EntryPoints EntryPoints `json:"entryPoints"`
	RiskReward  float64     `json:"riskReward"`
	Confidence  float64     `json:"confidence"`
	Strength    Strength    `json:"strength"`
	Summary     string      `json:"summary"`
	Timeframe   string      `json:"timeframe"`
}

// ScoredAsset is created fresh each cycle and never mutated afterwards.
type ScoredAsset struct {
	Symbol      string            `json:"symbol"`
	InstID      string            `json:"instId"`
	Price       float64           `json:"price"`
	PriceChange float64           `json:"priceChange"`
	Volume24h   float64           `json:"volume24h"`
	Score       float64           `json:"score"`
	Signals     []Signal          `json:"signals"`
	Indicators  IndicatorSnapshot `json:"indicators"`
	Analysis    Analysis          `json:"analysis"`
	DataSource  string            `json:"dataSource"`
	Timestamp   time.Time         `json:"timestamp"`
}

// RankedPortfolio is the ordered top-N view of one completed cycle.
type RankedPortfolio struct {
	Coins      []ScoredAsset `json:"coins"`
	LastUpdate time.Time     `json:"lastUpdate"`
	Synthetic  bool          `json:"synthetic"`
	CycleID    string        `json:"cycleId,omitempty"`
}

// Find returns the asset with the given symbol or instrument id.
func (p RankedPortfolio) Find(symbol string) (ScoredAsset, bool) {
	for _, c := range p.Coins {
		if c.Symbol == symbol || c.InstID == symbol {
			return c, true
		}
	}
	return ScoredAsset{}, false
}

// Search returns assets whose symbol contains query, ignoring case. An empty query returns everything.
func (p RankedPortfolio) Search(query string) []ScoredAsset {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]ScoredAsset, 0, len(p.Coins))
	for _, c := range p.Coins {
		if q == "" || strings.Contains(strings.ToLower(c.Symbol), q) {
			out = append(out, c)
		}
	}
	return out
}

// FilterByScore returns assets scoring at least min, in rank order.
func (p RankedPortfolio) FilterByScore(min float64) []ScoredAsset {
	out := make([]ScoredAsset, 0, len(p.Coins))
	for _, c := range p.Coins {
		if c.Score >= min {
			out = append(out, c)
		}
	}
	return out
}
