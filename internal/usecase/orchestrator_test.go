package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"CoinScout/internal/domain/models"
	"CoinScout/internal/repository"
	"CoinScout/pkg/cache"
	applogger "CoinScout/pkg/logger"
)

func newTestOrchestrator(t *testing.T, gw *stubGateway, obs ...*recordingObserver) (*Orchestrator, *repository.CacheSnapshotStore, *countingMetrics) {
	t.Helper()
	cfg := testConfig()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	store := repository.NewCacheSnapshotStore(mc, cfg.Cache.Key, cfg.Cache.MaxAge)
	metrics := newCountingMetrics()
	p := newTestPipeline(gw, stubEngine{snap: models.NeutralSnapshot(), label: models.SourceOKX}, cfg, metrics)

	ids := 0
	o := NewOrchestrator(p, store, metrics, time.Hour, cfg.Strategy.QualifiedScore, applogger.NewNop(),
		WithCycleIDs(func() string { ids++; return "cycle-" + string(rune('0'+ids)) }))
	for _, ob := range obs {
		o.AddObserver(ob)
	}
	return o, store, metrics
}

func sampleBatch() models.TickerBatch {
	return models.TickerBatch{Tickers: []models.Ticker{
		ticker("BTC-USDT", 65000, 5e8),
		ticker("ETH-USDT", 3000, 5e8),
	}}
}

func TestOrchestrator_InitRestoresWithoutFetching(t *testing.T) {
	gw := &stubGateway{batch: sampleBatch()}
	o, store, metrics := newTestOrchestrator(t, gw)

	snap := models.RankedPortfolio{
		Coins:      []models.ScoredAsset{{Symbol: "SOL", InstID: "SOL-USDT", Score: 60}},
		LastUpdate: time.Now().Add(-10 * time.Minute),
	}
	if err := store.Persist(context.Background(), snap); err != nil {
		t.Fatalf("persist: %v", err)
	}

	if err := o.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if gw.calls.Load() != 0 {
		t.Fatalf("expected no fetch on cache hit, got %d", gw.calls.Load())
	}
	if o.State() != models.StateReady || len(o.Portfolio().Coins) != 1 {
		t.Fatalf("expected ready with restored portfolio, got %s %d", o.State(), len(o.Portfolio().Coins))
	}
	if metrics.cache["hit"] != 1 {
		t.Fatalf("expected a cache hit to be recorded")
	}
}

func TestOrchestrator_InitMissRunsCycle(t *testing.T) {
	gw := &stubGateway{batch: sampleBatch()}
	obs := &recordingObserver{}
	o, store, _ := newTestOrchestrator(t, gw, obs)

	if err := o.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if gw.calls.Load() != 1 || o.State() != models.StateReady {
		t.Fatalf("expected one cycle and ready state, got %d %s", gw.calls.Load(), o.State())
	}
	if obs.calls != 1 || obs.err != nil || len(obs.last.Coins) != 2 {
		t.Fatalf("observer not notified with portfolio: %+v", obs)
	}
	restored, err := store.Restore(context.Background())
	if err != nil || len(restored.Coins) != 2 {
		t.Fatalf("cycle result not persisted: %v", err)
	}
	if st := o.Status(); st.LastCycle == nil || st.LastCycle.ID != "cycle-1" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestOrchestrator_RefreshRejectedWhileLoading(t *testing.T) {
	gw := &stubGateway{
		batch:   sampleBatch(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	o, _, _ := newTestOrchestrator(t, gw)

	done := make(chan error, 1)
	go func() {
		_, err := o.Refresh(context.Background())
		done <- err
	}()

	select {
	case <-gw.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("first refresh never reached the gateway")
	}
	if o.State() != models.StateLoading {
		t.Fatalf("expected loading, got %s", o.State())
	}
	if _, err := o.Refresh(context.Background()); !errors.Is(err, ErrRefreshInProgress) {
		t.Fatalf("expected ErrRefreshInProgress, got %v", err)
	}

	close(gw.release)
	if err := <-done; err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	if gw.calls.Load() != 1 {
		t.Fatalf("rejected refresh must not be queued, calls=%d", gw.calls.Load())
	}
}

func TestOrchestrator_CanceledCycleKeepsState(t *testing.T) {
	gw := &stubGateway{batch: sampleBatch()}
	obs := &recordingObserver{}
	o, _, metrics := newTestOrchestrator(t, gw, obs)

	if _, err := o.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	gw.entered = make(chan struct{}, 1)
	gw.release = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := o.Refresh(ctx)
		done <- err
	}()

	select {
	case <-gw.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("refresh never reached the gateway")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	st := o.Status()
	if st.State != models.StateReady || st.LastError != "" {
		t.Fatalf("canceled cycle changed state: %+v", st)
	}
	if obs.calls != 1 || obs.err != nil {
		t.Fatalf("observers must not hear about a canceled cycle: %+v", obs)
	}
	if metrics.cycles["error"] != 0 || metrics.cycles["aborted"] != 1 {
		t.Fatalf("unexpected cycle metrics: %v", metrics.cycles)
	}
	if len(o.Portfolio().Coins) != 2 {
		t.Fatalf("previous portfolio lost")
	}
}

func TestOrchestrator_FailedCycleKeepsPreviousPortfolio(t *testing.T) {
	gw := &stubGateway{batch: sampleBatch()}
	obs := &recordingObserver{}
	o, _, metrics := newTestOrchestrator(t, gw, obs)

	if _, err := o.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	gw.err = errors.New("exchange down")
	if _, err := o.Refresh(context.Background()); err == nil {
		t.Fatalf("expected failure")
	}

	st := o.Status()
	if st.State != models.StateError || st.LastError == "" {
		t.Fatalf("expected error state, got %+v", st)
	}
	if len(o.Portfolio().Coins) != 2 {
		t.Fatalf("previous portfolio lost")
	}
	if obs.err == nil || obs.calls != 2 {
		t.Fatalf("observer not told about failure: %+v", obs)
	}
	if metrics.cycles["error"] != 1 || metrics.cycles["ok"] != 1 {
		t.Fatalf("unexpected cycle metrics: %v", metrics.cycles)
	}

	gw.err = nil
	if _, err := o.Refresh(context.Background()); err != nil || o.State() != models.StateReady {
		t.Fatalf("expected recovery from error state: %v %s", err, o.State())
	}
}

func TestOrchestrator_Views(t *testing.T) {
	gw := &stubGateway{}
	o, store, _ := newTestOrchestrator(t, gw)
	snap := models.RankedPortfolio{
		Coins: []models.ScoredAsset{
			{Symbol: "BTC", InstID: "BTC-USDT", Score: 80},
			{Symbol: "BTT", InstID: "BTT-USDT", Score: 50},
			{Symbol: "ETH", InstID: "ETH-USDT", Score: 25},
		},
		LastUpdate: time.Now(),
	}
	if err := store.Persist(context.Background(), snap); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := o.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	if got := o.Search("bt"); len(got) != 2 {
		t.Fatalf("search: expected 2, got %d", len(got))
	}
	if got := o.Search(""); len(got) != 3 {
		t.Fatalf("empty search: expected all, got %d", len(got))
	}
	if got := o.FilterByScore(50); len(got) != 2 || got[1].Symbol != "BTT" {
		t.Fatalf("filter: unexpected %+v", got)
	}
	st := o.Stats()
	if st.TotalCoins != 3 || st.QualifiedCoins != 2 || st.AverageScore != 51.7 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if a, ok := o.Asset("eth"); !ok || a.Score != 25 {
		t.Fatalf("asset lookup failed: %+v %v", a, ok)
	}
	if o.State() == models.StateLoading {
		t.Fatalf("views must not enter loading")
	}
}

func TestOrchestrator_StartStopPersists(t *testing.T) {
	gw := &stubGateway{batch: sampleBatch()}
	o, store, _ := newTestOrchestrator(t, gw)
	ctx := context.Background()

	if _, err := o.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := o.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Start(ctx); err == nil {
		t.Fatalf("second start must fail")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := o.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := store.Restore(ctx); err != nil {
		t.Fatalf("expected snapshot after stop: %v", err)
	}
}
