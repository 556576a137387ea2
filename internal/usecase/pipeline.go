package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CoinScout/internal/domain/models"
	drepo "CoinScout/internal/domain/repository"
	domsvc "CoinScout/internal/domain/service"
	applogger "CoinScout/pkg/logger"
)

// Result is the outcome of analyzing one ticker.
type Result struct {
	Asset models.ScoredAsset
	Err   error
}

// Pipeline runs one fetch, filter, score and rank cycle.
type Pipeline struct {
	gateway     drepo.MarketGateway
	filter      *TickerFilter
	scorer      *Scorer
	standIn     domsvc.IndicatorEngine
	topN        int
	concurrency int
	metrics     drepo.Metrics
	log         *applogger.Logger
}

// NewPipeline wires the stages. standIn scores synthetic ticker batches, which have no real history.
func NewPipeline(gateway drepo.MarketGateway, filter *TickerFilter, scorer *Scorer, standIn domsvc.IndicatorEngine,
	topN, concurrency int, metrics drepo.Metrics, l *applogger.Logger) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		gateway:     gateway,
		filter:      filter,
		scorer:      scorer,
		standIn:     standIn,
		topN:        topN,
		concurrency: concurrency,
		metrics:     metrics,
		log:         l,
	}
}

// Run executes a full cycle. It only fails when the gateway has no data at all.
func (p *Pipeline) Run(ctx context.Context, cycleID string) (models.RankedPortfolio, models.CycleReport, error) {
	report := models.CycleReport{ID: cycleID, StartedAt: time.Now()}
	log := p.log.With(applogger.String("cycle_id", cycleID))

	batch, err := p.gateway.FetchTickers(ctx)
	if err != nil {
		return models.RankedPortfolio{}, report, fmt.Errorf("gateway: %w", err)
	}
	report.Fetched = len(batch.Tickers)
	report.Synthetic = batch.Synthetic
	report.FallbackReason = batch.FallbackReason

	filtered := p.filter.Apply(batch.Tickers)
	report.Filtered = len(filtered)

	scorer := p.scorer
	if batch.Synthetic && p.standIn != nil {
		scorer = scorer.WithEngine(p.standIn)
	}

	results := p.analyzeAll(ctx, scorer, filtered)
	if err := ctx.Err(); err != nil {
		return models.RankedPortfolio{}, report, fmt.Errorf("analyze: %w", err)
	}

	assets := make([]models.ScoredAsset, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			report.Failed++
			if p.metrics != nil {
				p.metrics.RecordAnalysisError(analysisErrorKind(r.Err))
			}
			log.Debug("asset dropped", applogger.Error(r.Err))
			continue
		}
		assets = append(assets, r.Asset)
	}
	report.Scored = len(assets)

	ranked := Rank(assets, p.topN)
	report.Ranked = len(ranked)
	report.Duration = time.Since(report.StartedAt)

	log.Info("pipeline cycle complete",
		applogger.Int("fetched", report.Fetched),
		applogger.Int("filtered", report.Filtered),
		applogger.Int("scored", report.Scored),
		applogger.Int("failed", report.Failed),
		applogger.Int("ranked", report.Ranked),
		applogger.Bool("synthetic", report.Synthetic),
		applogger.Duration("duration_ms", report.Duration),
	)

	return models.RankedPortfolio{
		Coins:      ranked,
		LastUpdate: time.Now(),
		Synthetic:  batch.Synthetic,
		CycleID:    cycleID,
	}, report, nil
}

// analyzeAll fans tickers out to a bounded worker pool. results[i] belongs to tickers[i].
func (p *Pipeline) analyzeAll(ctx context.Context, scorer *Scorer, tickers []models.Ticker) []Result {
	results := make([]Result, len(tickers))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := min(p.concurrency, len(tickers))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = analyzeOne(ctx, scorer, tickers[i])
			}
		}()
	}

	for i := range tickers {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(tickers); j++ {
				results[j] = Result{Err: &AnalysisError{InstID: tickers[j].InstID, Err: ctx.Err()}}
			}
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func analyzeOne(ctx context.Context, scorer *Scorer, t models.Ticker) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: &AnalysisError{InstID: t.InstID, Err: fmt.Errorf("panic: %v", r)}}
		}
	}()
	asset, err := scorer.Analyze(ctx, t)
	return Result{Asset: asset, Err: err}
}

func analysisErrorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "analysis"
	}
}
