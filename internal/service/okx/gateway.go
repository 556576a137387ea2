package okx

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"CoinScout/internal/domain/models"
	drepo "CoinScout/internal/domain/repository"
	applogger "CoinScout/pkg/logger"
)

// TickerFetcher is the part of Client the gateway depends on.
type TickerFetcher interface {
	FetchTickers(ctx context.Context) ([]models.Ticker, error)
}

// Gateway wraps the exchange client with the synthetic fallback.
type Gateway struct {
	client   TickerFetcher
	quote    string
	fallback bool
	metrics  drepo.Metrics
	log      *applogger.Logger

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// GatewayOption configures Gateway.
type GatewayOption func(*Gateway)

// WithRand sets the random source for synthetic data.
func WithRand(r *rand.Rand) GatewayOption {
	return func(g *Gateway) { g.rng = r }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// NewGateway creates a gateway. When fallback is false, exchange failures are returned to the caller.
func NewGateway(client TickerFetcher, quote string, fallback bool, metrics drepo.Metrics, l *applogger.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client:   client,
		quote:    quote,
		fallback: fallback,
		metrics:  metrics,
		log:      l,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FetchTickers implements drepo.MarketGateway.
func (g *Gateway) FetchTickers(ctx context.Context) (models.TickerBatch, error) {
	start := time.Now()
	tickers, err := g.client.FetchTickers(ctx)
	if g.metrics != nil {
		g.metrics.RecordLatency("okx_tickers", time.Since(start).Seconds())
	}
	if err == nil {
		return models.TickerBatch{Tickers: tickers, FetchedAt: g.now()}, nil
	}

	if ctx.Err() != nil {
		return models.TickerBatch{}, fmt.Errorf("fetch tickers: %w", ctx.Err())
	}
	kind := ErrorKind(err)
	if g.metrics != nil {
		g.metrics.RecordError("okx_" + kind)
	}
	if !g.fallback {
		return models.TickerBatch{}, fmt.Errorf("fetch tickers: %w", err)
	}

	g.log.Warn("okx unavailable, serving synthetic tickers",
		applogger.String("reason", kind),
		applogger.Error(err),
		applogger.Int("symbols", len(Roster)),
	)
	if g.metrics != nil {
		g.metrics.RecordFallback(kind)
	}

	now := g.now()
	g.mu.Lock()
	synthetic := SyntheticTickers(g.rng, g.quote, now)
	g.mu.Unlock()

	return models.TickerBatch{
		Tickers:        synthetic,
		Synthetic:      true,
		FallbackReason: err.Error(),
		FetchedAt:      now,
	}, nil
}
