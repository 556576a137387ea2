package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"CoinScout/internal/domain/models"
	"CoinScout/pkg/config"
	applogger "CoinScout/pkg/logger"
)

type stubEngine struct {
	snap  models.IndicatorSnapshot
	label string
	err   error
}

func (e stubEngine) Snapshot(context.Context, models.Ticker) (models.IndicatorSnapshot, string, error) {
	if e.err != nil {
		return models.IndicatorSnapshot{}, "", e.err
	}
	return e.snap, e.label, nil
}

type stubGateway struct {
	batch   models.TickerBatch
	err     error
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *stubGateway) FetchTickers(ctx context.Context) (models.TickerBatch, error) {
	g.calls.Add(1)
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return models.TickerBatch{}, ctx.Err()
		}
	}
	return g.batch, g.err
}

type recordingObserver struct {
	mu     sync.Mutex
	calls  int
	last   models.RankedPortfolio
	lastRe models.CycleReport
	err    error
}

func (o *recordingObserver) OnPortfolio(_ context.Context, p models.RankedPortfolio, r models.CycleReport, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.last = p
	o.lastRe = r
	o.err = err
}

type countingMetrics struct {
	mu       sync.Mutex
	cycles   map[string]int
	cache    map[string]int
	analysis int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{cycles: map[string]int{}, cache: map[string]int{}}
}

func (m *countingMetrics) RecordCycle(status string, _ float64) {
	m.mu.Lock()
	m.cycles[status]++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordFallback(string) {}
func (m *countingMetrics) RecordAnalysisError(string) {
	m.mu.Lock()
	m.analysis++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordPortfolio(int, float64) {}
func (m *countingMetrics) RecordCacheResult(result string) {
	m.mu.Lock()
	m.cache[result]++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordError(string)            {}
func (m *countingMetrics) RecordLatency(string, float64) {}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Strategy.MinVolume = 1000
	return cfg
}

func ticker(instID string, last, volCcy float64) models.Ticker {
	return models.Ticker{
		InstID:    instID,
		Last:      last,
		Open24h:   last * 0.9,
		High24h:   last * 1.1,
		Low24h:    last * 0.85,
		Vol24h:    volCcy / last,
		VolCcy24h: volCcy,
		Timestamp: time.Unix(1700000000, 0),
	}
}

func allSignalsSnapshot() models.IndicatorSnapshot {
	return models.IndicatorSnapshot{
		RSI:            60,
		RSIPrevious:    45,
		MACD:           1.2,
		MACDSignal:     1.0,
		MACDCrossover:  true,
		SMA:            95,
		SMAPrevious:    96,
		PreviousPrice:  94,
		Resistance:     101,
		Support:        90,
		NearResistance: true,
		Liquidity:      1000,
		LiquidityCross: true,
		VolumeChange:   35,
		VolumeIncrease: true,
		TrendStrength:  0.9,
	}
}

func newTestPipeline(gw *stubGateway, engine stubEngine, cfg *config.Config, metrics *countingMetrics) *Pipeline {
	l := applogger.NewNop()
	scorer := NewScorer(engine, nil, cfg, l)
	return NewPipeline(gw, NewTickerFilter(cfg.Strategy), scorer, nil, cfg.Strategy.TopN, cfg.Strategy.Concurrency, metrics, l)
}
