package service

import (
	"context"

	"CoinScout/internal/domain/models"
)

// IndicatorEngine produces an indicator snapshot for one ticker.
// It returns the source label used ("okx", "clickhouse", "synthetic").
type IndicatorEngine interface {
	Snapshot(ctx context.Context, t models.Ticker) (models.IndicatorSnapshot, string, error)
}

// Notifier delivers human-facing alerts.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
