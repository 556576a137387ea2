package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"CoinScout/internal/domain/models"
	domsvc "CoinScout/internal/domain/service"
	"CoinScout/pkg/config"
	applogger "CoinScout/pkg/logger"

	"github.com/shopspring/decimal"
)

// Fallback policies applied when the indicator engine has no history for a ticker.
const (
	FallbackNeutral   = "neutral"
	FallbackSynthetic = "synthetic"
	FallbackSkip      = "skip"
)

const (
	summaryVeryStrong   = "Very strong buy signal: multiple technical factors align"
	summaryGood         = "Good buy signal: several positive technical factors"
	summaryPossible     = "Possible buy opportunity: worth monitoring"
	summaryNone         = "No clear signal at the moment"
	summaryInsufficient = "Insufficient data for analysis"
	timeframeUnknown    = "undetermined"
)

// AnalysisError is the per-asset failure. The asset is dropped, the cycle continues.
type AnalysisError struct {
	InstID string
	Err    error
}

func (e *AnalysisError) Error() string { return fmt.Sprintf("analyze %s: %v", e.InstID, e.Err) }

func (e *AnalysisError) Unwrap() error { return e.Err }

// Scorer turns a ticker into a ScoredAsset.
type Scorer struct {
	engine         domsvc.IndicatorEngine
	standIn        domsvc.IndicatorEngine
	policy         string
	weights        config.Weights
	rsiThreshold   float64
	trendThreshold float64
	analysis       config.Analysis
	now            func() time.Time
	log            *applogger.Logger
}

// NewScorer creates a scorer. standIn is used by the "synthetic" fallback policy and may be nil otherwise.
func NewScorer(engine, standIn domsvc.IndicatorEngine, cfg *config.Config, l *applogger.Logger) *Scorer {
	return &Scorer{
		engine:         engine,
		standIn:        standIn,
		policy:         cfg.Indicators.Fallback,
		weights:        cfg.Weights,
		rsiThreshold:   cfg.Indicators.RSIThreshold,
		trendThreshold: cfg.Indicators.TrendThreshold,
		analysis:       cfg.Analysis,
		now:            time.Now,
		log:            l,
	}
}

// WithEngine returns a copy of the scorer that reads indicators from e.
func (s *Scorer) WithEngine(e domsvc.IndicatorEngine) *Scorer {
	cp := *s
	cp.engine = e
	return &cp
}

// Analyze scores one ticker.
func (s *Scorer) Analyze(ctx context.Context, t models.Ticker) (models.ScoredAsset, error) {
	snap, source, err := s.engine.Snapshot(ctx, t)
	if err != nil {
		if ctx.Err() != nil {
			return models.ScoredAsset{}, &AnalysisError{InstID: t.InstID, Err: ctx.Err()}
		}
		snap, source, err = s.fallback(ctx, t, err)
		if err != nil {
			return models.ScoredAsset{}, &AnalysisError{InstID: t.InstID, Err: err}
		}
	}

	signals, score := s.Evaluate(t.Last, snap)
	return models.ScoredAsset{
		Symbol:      t.Base(),
		InstID:      t.InstID,
		Price:       t.Last,
		PriceChange: t.ChangePercent(),
		Volume24h:   t.VolCcy24h,
		Score:       score,
		Signals:     signals,
		Indicators:  snap,
		Analysis:    s.BuildAnalysis(t.Last, signals, score),
		DataSource:  source,
		Timestamp:   s.now(),
	}, nil
}

func (s *Scorer) fallback(ctx context.Context, t models.Ticker, cause error) (models.IndicatorSnapshot, string, error) {
	s.log.Debug("indicator history unavailable",
		applogger.String("inst_id", t.InstID),
		applogger.String("policy", s.policy),
		applogger.Error(cause),
	)
	switch s.policy {
	case FallbackSynthetic:
		if s.standIn == nil {
			return models.IndicatorSnapshot{}, "", fmt.Errorf("no stand-in engine: %w", cause)
		}
		return s.standIn.Snapshot(ctx, t)
	case FallbackSkip:
		return models.IndicatorSnapshot{}, "", cause
	default:
		return models.NeutralSnapshot(), models.SourceNeutral, nil
	}
}

// Evaluate applies the seven rules and returns the fired signals and their weight sum.
func (s *Scorer) Evaluate(price float64, ind models.IndicatorSnapshot) ([]models.Signal, float64) {
	w := s.weights
	rules := []struct {
		fired  bool
		typ    models.SignalType
		value  float64
		weight float64
	}{
		{ind.RSI > s.rsiThreshold && ind.RSIPrevious <= s.rsiThreshold, models.SignalRSIBreakthrough, ind.RSI, w.RSIBreakthrough},
		{ind.MACDCrossover, models.SignalMACDCrossover, ind.MACD, w.MACDCrossover},
		{ind.SMA > 0 && price > ind.SMA && ind.PreviousPrice <= ind.SMAPrevious, models.SignalSMABreakthrough, price, w.SMABreakthrough},
		{ind.NearResistance, models.SignalNearResistance, ind.Resistance, w.ResistanceBreak},
		{ind.LiquidityCross, models.SignalLiquidityCross, ind.Liquidity, w.LiquidityCross},
		{ind.VolumeIncrease, models.SignalVolumeIncrease, ind.VolumeChange, w.VolumeIncrease},
		{ind.TrendStrength > s.trendThreshold, models.SignalStrongTrend, ind.TrendStrength, w.TrendStrength},
	}

	signals := make([]models.Signal, 0, len(rules))
	var score float64
	for _, r := range rules {
		if !r.fired {
			continue
		}
		signals = append(signals, models.Signal{Type: r.typ, Value: r.value, Weight: r.weight})
		score += r.weight
	}
	return signals, score
}

// BuildAnalysis derives targets, stop-loss, entries, risk/reward and confidence.
func (s *Scorer) BuildAnalysis(price float64, signals []models.Signal, score float64) models.Analysis {
	if price <= 0 || math.IsNaN(price) {
		return models.Analysis{
			Strength:  models.StrengthNone,
			Summary:   summaryInsufficient,
			Timeframe: timeframeUnknown,
		}
	}

	a := s.analysis
	t2 := price * (1 + a.Target2)
	stop := price * (1 - a.StopLoss)

	var rr float64
	if risk := price - stop; risk > 0 {
		rr = round((t2-price)/risk, 2)
	}

	var confidence float64
	if total := s.weights.Total(); total > 0 {
		confidence = round(math.Min(100, score/total*100), 0)
	}

	strength, summary := classify(len(signals))
	return models.Analysis{
		Targets: models.Targets{
			Target1: roundPrice(price * (1 + a.Target1)),
			Target2: roundPrice(t2),
			Target3: roundPrice(price * (1 + a.Target3)),
		},
		StopLoss: roundPrice(stop),
		EntryPoints: models.EntryPoints{
			Immediate: roundPrice(price),
			Dip:       roundPrice(price * (1 - a.Dip)),
			Breakout:  roundPrice(price * (1 + a.Breakout)),
		},
		RiskReward: rr,
		Confidence: confidence,
		Strength:   strength,
		Summary:    summary,
		Timeframe:  a.Timeframe,
	}
}

func classify(n int) (models.Strength, string) {
	switch {
	case n >= 5:
		return models.StrengthVeryStrong, summaryVeryStrong
	case n >= 3:
		return models.StrengthGood, summaryGood
	case n >= 1:
		return models.StrengthPossible, summaryPossible
	default:
		return models.StrengthNone, summaryNone
	}
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// priceDigits is the number of significant digits kept on derived price levels.
const priceDigits = 8

// roundPrice rounds to priceDigits significant digits so sub-cent prices keep their precision.
func roundPrice(v float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	magnitude := int32(math.Floor(math.Log10(math.Abs(v))))
	return round(v, priceDigits-1-magnitude)
}
