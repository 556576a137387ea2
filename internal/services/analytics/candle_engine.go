package analytics

import (
	"context"
	"errors"
	"fmt"

	"CoinScout/internal/domain/models"
	drepo "CoinScout/internal/domain/repository"
	"CoinScout/internal/services/indicators"
	"CoinScout/pkg/config"
)

// ErrNoHistory is returned when the candle source has too little data for any indicator.
var ErrNoHistory = errors.New("no price history")

// CandleEngine computes indicator snapshots from real OHLCV history.
type CandleEngine struct {
	source drepo.CandleSource
	label  string
	bar    drepo.Bar
	limit  int
	cfg    config.Indicators
}

// NewCandleEngine creates an engine over source. label names the source in ScoredAsset.DataSource.
func NewCandleEngine(source drepo.CandleSource, label string, cfg config.Indicators) *CandleEngine {
	return &CandleEngine{
		source: source,
		label:  label,
		bar:    drepo.NormalizeBar(cfg.Bar),
		limit:  cfg.HistoryLimit,
		cfg:    cfg,
	}
}

// Snapshot implements domsvc.IndicatorEngine.
func (e *CandleEngine) Snapshot(ctx context.Context, t models.Ticker) (models.IndicatorSnapshot, string, error) {
	candles, err := e.source.GetLatestNCandles(ctx, t.InstID, e.limit, e.bar)
	if err != nil {
		return models.IndicatorSnapshot{}, "", fmt.Errorf("load history %s: %w", t.InstID, err)
	}
	if len(candles) < 2 {
		return models.IndicatorSnapshot{}, "", fmt.Errorf("%s: %w", t.InstID, ErrNoHistory)
	}
	return Compute(t.Last, candles, e.cfg), e.label, nil
}

// Compute derives every snapshot field from ascending candles. An indicator that
// lacks history keeps its neutral value.
func Compute(price float64, candles []models.Candle, cfg config.Indicators) models.IndicatorSnapshot {
	n := len(candles)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	vols := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		vols[i] = c.Volume
	}

	snap := models.NeutralSnapshot()
	if n < 2 {
		return snap
	}

	rsi, errNow := indicators.RSI(closes, cfg.RSIPeriod)
	rsiPrev, errPrev := indicators.RSI(closes[:n-1], cfg.RSIPeriod)
	if errNow == nil && errPrev == nil {
		snap.RSI, snap.RSIPrevious = rsi, rsiPrev
	}

	if m, err := indicators.MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal); err == nil {
		snap.MACD = m.Line[n-1]
		snap.MACDSignal = m.Signal[n-1]
		snap.MACDCrossover = indicators.CrossedAbove(m.Line, m.Signal)
	}

	if sma, err := indicators.SMASlice(closes, cfg.SMAPeriod); err == nil && len(sma) >= 2 {
		snap.SMA = sma[len(sma)-1]
		snap.SMAPrevious = sma[len(sma)-2]
		snap.PreviousPrice = closes[n-2]
	}

	// levels come from completed bars only
	if sup, res, err := indicators.SupportResistance(highs[:n-1], lows[:n-1], min(cfg.SRLookback, n-1)); err == nil {
		snap.Support, snap.Resistance = sup, res
		snap.NearResistance = indicators.NearLevel(price, res, cfg.ResistanceProximity)
	}

	if obv, err := indicators.OBV(closes, vols); err == nil {
		if line, err := indicators.SMASlice(obv, cfg.SMAPeriod); err == nil && len(line) >= 2 {
			var window float64
			for _, v := range vols[n-cfg.SMAPeriod:] {
				window += v
			}
			if window > 0 {
				snap.Liquidity = (obv[n-1] - line[len(line)-1]) / window * 100
			}
			snap.LiquidityCross = indicators.CrossedAbove(obv[n-2:], line[len(line)-2:])
		}
	}

	if ch, err := indicators.VolumeChange(vols, cfg.VolumePeriod); err == nil {
		snap.VolumeChange = ch
		snap.VolumeIncrease = ch > 0
	}

	if ts, err := indicators.TrendStrength(closes, cfg.TrendLookback); err == nil {
		snap.TrendStrength = ts
	}

	return snap
}
