package repository

import (
	"context"

	"CoinScout/internal/domain/models"
)

// MarketGateway returns the current spot ticker set. It falls back to a
// synthetic batch on exchange failure and flags it on the batch.
type MarketGateway interface {
	FetchTickers(ctx context.Context) (models.TickerBatch, error)
}

// CandleSource provides ascending OHLCV history for one instrument.
type CandleSource interface {
	GetLatestNCandles(ctx context.Context, instID string, n int, bar Bar) ([]models.Candle, error)
}

// SnapshotStore is the single-slot ranked portfolio cache.
type SnapshotStore interface {
	Persist(ctx context.Context, p models.RankedPortfolio) error
	Restore(ctx context.Context) (models.RankedPortfolio, error)
}

// PortfolioObserver is notified after every pipeline cycle.
// err is non-nil when the cycle failed, in which case p is the previous portfolio.
type PortfolioObserver interface {
	OnPortfolio(ctx context.Context, p models.RankedPortfolio, report models.CycleReport, err error)
}

type Metrics interface {
	RecordCycle(status string, seconds float64)
	RecordFallback(reason string)
	RecordAnalysisError(kind string)
	RecordPortfolio(size int, avgScore float64)
	RecordCacheResult(result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
