package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"CoinScout/internal/domain/models"
	drepo "CoinScout/internal/domain/repository"
	"CoinScout/internal/repository"
	applogger "CoinScout/pkg/logger"
)

// ErrRefreshInProgress is returned when a refresh is requested while a cycle is running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

var stateNames = [...]models.PipelineState{
	models.StateIdle,
	models.StateLoading,
	models.StateReady,
	models.StateError,
}

const (
	stateIdle int32 = iota
	stateLoading
	stateReady
	stateError
)

// Orchestrator owns the current portfolio and drives pipeline cycles.
type Orchestrator struct {
	pipeline  *Pipeline
	store     drepo.SnapshotStore
	metrics   drepo.Metrics
	observers []drepo.PortfolioObserver
	interval  time.Duration
	qualified float64
	newID     func() string
	log       *applogger.Logger

	state atomic.Int32

	mu        sync.RWMutex
	portfolio models.RankedPortfolio
	lastError string
	lastCycle *models.CycleReport

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// OrchestratorOption configures Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithObservers registers observers notified after every cycle.
func WithObservers(obs ...drepo.PortfolioObserver) OrchestratorOption {
	return func(o *Orchestrator) {
		for _, ob := range obs {
			if ob != nil {
				o.observers = append(o.observers, ob)
			}
		}
	}
}

// WithCycleIDs overrides the cycle id generator.
func WithCycleIDs(gen func() string) OrchestratorOption {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newID = gen
		}
	}
}

func NewOrchestrator(pipeline *Pipeline, store drepo.SnapshotStore, metrics drepo.Metrics,
	interval time.Duration, qualifiedScore float64, l *applogger.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		pipeline:  pipeline,
		store:     store,
		metrics:   metrics,
		interval:  interval,
		qualified: qualifiedScore,
		newID:     uuid.NewString,
		log:       l,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AddObserver registers an observer after construction.
func (o *Orchestrator) AddObserver(ob drepo.PortfolioObserver) {
	if ob == nil {
		return
	}
	o.mu.Lock()
	o.observers = append(o.observers, ob)
	o.mu.Unlock()
}

// Init restores a fresh snapshot if one exists, otherwise runs a first cycle.
func (o *Orchestrator) Init(ctx context.Context) error {
	p, err := o.store.Restore(ctx)
	if err == nil {
		o.mu.Lock()
		o.portfolio = p
		o.lastError = ""
		o.mu.Unlock()
		o.state.Store(stateReady)
		o.recordCache("hit")
		o.log.Info("portfolio restored from cache",
			applogger.Int("coins", len(p.Coins)),
			applogger.Time("last_update", p.LastUpdate),
			applogger.Bool("synthetic", p.Synthetic),
		)
		return nil
	}

	switch {
	case errors.Is(err, repository.ErrSnapshotStale):
		o.recordCache("stale")
	case errors.Is(err, repository.ErrSnapshotCorrupt):
		o.recordCache("corrupt")
		o.log.Warn("cached portfolio unreadable", applogger.Error(err))
	case errors.Is(err, repository.ErrSnapshotMissing):
		o.recordCache("miss")
	default:
		o.recordCache("error")
		o.log.Warn("cache restore failed", applogger.Error(err))
	}

	_, err = o.Refresh(ctx)
	return err
}

// Refresh runs one pipeline cycle. Concurrent calls are rejected, not queued.
func (o *Orchestrator) Refresh(ctx context.Context) (models.CycleReport, error) {
	prevState, ok := o.enterLoading()
	if !ok {
		return models.CycleReport{}, ErrRefreshInProgress
	}

	id := o.newID()
	start := time.Now()
	o.log.Info("pipeline cycle started", applogger.String("cycle_id", id))

	p, report, err := o.pipeline.Run(ctx, id)
	elapsed := time.Since(start)
	if report.Duration == 0 {
		report.Duration = elapsed
	}

	if errors.Is(err, context.Canceled) {
		o.state.Store(prevState)
		if o.metrics != nil {
			o.metrics.RecordCycle("aborted", elapsed.Seconds())
		}
		o.log.Info("pipeline cycle aborted",
			applogger.String("cycle_id", id),
			applogger.Error(err),
		)
		return report, err
	}

	if err != nil {
		o.mu.Lock()
		o.lastError = err.Error()
		o.lastCycle = &report
		prev := o.portfolio
		o.mu.Unlock()
		o.state.Store(stateError)

		if o.metrics != nil {
			o.metrics.RecordCycle("error", elapsed.Seconds())
			o.metrics.RecordError("pipeline")
		}
		o.log.Error("pipeline cycle failed",
			applogger.String("cycle_id", id),
			applogger.Error(err),
		)
		o.notify(ctx, prev, report, err)
		return report, err
	}

	if perr := o.store.Persist(ctx, p); perr != nil {
		if o.metrics != nil {
			o.metrics.RecordError("persist")
		}
		o.log.Warn("snapshot persist failed",
			applogger.String("cycle_id", id),
			applogger.Error(perr),
		)
	}

	o.mu.Lock()
	o.portfolio = p
	o.lastError = ""
	o.lastCycle = &report
	o.mu.Unlock()
	o.state.Store(stateReady)

	if o.metrics != nil {
		o.metrics.RecordCycle("ok", elapsed.Seconds())
		o.metrics.RecordPortfolio(len(p.Coins), averageScore(p.Coins))
	}
	o.notify(ctx, p, report, nil)
	return report, nil
}

// Start launches the periodic refresh loop. It returns immediately.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	if o.cancel != nil {
		return fmt.Errorf("orchestrator already started")
	}
	if o.interval <= 0 {
		return fmt.Errorf("invalid refresh interval: %s", o.interval)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})

	go o.loop(loopCtx, o.done)
	o.log.Info("refresh loop started", applogger.Duration("interval", o.interval))
	return nil
}

func (o *Orchestrator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.Refresh(ctx); errors.Is(err, ErrRefreshInProgress) {
				o.log.Debug("scheduled refresh skipped, cycle in progress")
			}
		}
	}
}

// Stop cancels the refresh loop, waits for it and persists the current portfolio.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.runMu.Lock()
	cancel, done := o.cancel, o.done
	o.cancel, o.done = nil, nil
	o.runMu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("wait refresh loop: %w", ctx.Err())
		}
	}

	p := o.Portfolio()
	if p.LastUpdate.IsZero() {
		return nil
	}
	if err := o.store.Persist(ctx, p); err != nil {
		return fmt.Errorf("persist on stop: %w", err)
	}
	o.log.Info("portfolio persisted on stop", applogger.Int("coins", len(p.Coins)))
	return nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() models.PipelineState {
	return stateNames[o.state.Load()]
}

// Portfolio returns the current ranked portfolio.
func (o *Orchestrator) Portfolio() models.RankedPortfolio {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p := o.portfolio
	p.Coins = slices.Clone(p.Coins)
	return p
}

// Asset looks a symbol up in the current portfolio, ignoring case.
func (o *Orchestrator) Asset(symbol string) (models.ScoredAsset, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return models.ScoredAsset{}, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.portfolio.Find(symbol)
}

func (o *Orchestrator) Status() models.Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	st := models.Status{
		State:      o.State(),
		LastUpdate: o.portfolio.LastUpdate,
		LastError:  o.lastError,
		Synthetic:  o.portfolio.Synthetic,
	}
	if o.lastCycle != nil {
		c := *o.lastCycle
		st.LastCycle = &c
	}
	return st
}

// Search returns assets whose symbol contains query, ignoring case. An empty query returns everything.
func (o *Orchestrator) Search(query string) []models.ScoredAsset {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.portfolio.Search(query)
}

// FilterByScore returns assets scoring at least min, in rank order.
func (o *Orchestrator) FilterByScore(min float64) []models.ScoredAsset {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.portfolio.FilterByScore(min)
}

func (o *Orchestrator) Stats() models.Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	st := models.Stats{
		TotalCoins: len(o.portfolio.Coins),
		LastUpdate: o.portfolio.LastUpdate,
	}
	for _, c := range o.portfolio.Coins {
		if c.Score >= o.qualified {
			st.QualifiedCoins++
		}
	}
	st.AverageScore = math.Round(averageScore(o.portfolio.Coins)*10) / 10
	return st
}

// enterLoading moves into Loading and returns the state it replaced.
func (o *Orchestrator) enterLoading() (int32, bool) {
	for {
		cur := o.state.Load()
		if cur == stateLoading {
			return cur, false
		}
		if o.state.CompareAndSwap(cur, stateLoading) {
			return cur, true
		}
	}
}

func (o *Orchestrator) notify(ctx context.Context, p models.RankedPortfolio, report models.CycleReport, err error) {
	o.mu.RLock()
	observers := slices.Clone(o.observers)
	o.mu.RUnlock()

	for _, ob := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.log.Error("portfolio observer panic",
						applogger.String("cycle_id", report.ID),
						applogger.Any("panic", r),
					)
				}
			}()
			ob.OnPortfolio(ctx, p, report, err)
		}()
	}
}

func (o *Orchestrator) recordCache(result string) {
	if o.metrics != nil {
		o.metrics.RecordCacheResult(result)
	}
}

func averageScore(coins []models.ScoredAsset) float64 {
	if len(coins) == 0 {
		return 0
	}
	var sum float64
	for _, c := range coins {
		sum += c.Score
	}
	return sum / float64(len(coins))
}
