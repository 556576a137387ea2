package okx

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"CoinScout/internal/domain/models"
	drepo "CoinScout/internal/domain/repository"
	"CoinScout/pkg/config"
	applogger "CoinScout/pkg/logger"
)

func testConfig(baseURL string) config.OKX {
	cfg := config.Default().OKX
	cfg.BaseURL = baseURL
	cfg.RetryDelay = time.Millisecond
	cfg.MaxRetryDelay = 5 * time.Millisecond
	cfg.CandleRate = 1000
	cfg.CandleBurst = 100
	return cfg
}

func TestFetchTickers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/market/tickers" || r.URL.Query().Get("instType") != "SPOT" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[
			{"instId":"BTC-USDT","last":"50000","open24h":"48000","high24h":"51000","low24h":"47000","vol24h":"40000","volCcy24h":"2000000000","ts":"1700000000000"},
			{"instId":"ETH-BTC","last":"0.05","open24h":"0.05","high24h":"0.06","low24h":"0.04","vol24h":"1","volCcy24h":"1","ts":"1700000000000"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	got, err := c.FetchTickers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tickers, got %d", len(got))
	}
	if got[0].InstID != "BTC-USDT" || got[0].Last != 50000 || got[0].VolCcy24h != 2e9 {
		t.Fatalf("unexpected ticker %+v", got[0])
	}
	if got[0].Timestamp.UnixMilli() != 1700000000000 {
		t.Fatalf("unexpected timestamp %v", got[0].Timestamp)
	}
}

func TestFetchTickersNonZeroCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"50011","msg":"Too Many Requests","data":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).FetchTickers(context.Background())
	var me *MalformedResponseError
	if !errors.As(err, &me) || me.Code != "50011" {
		t.Fatalf("expected MalformedResponseError with code, got %v", err)
	}
}

func TestFetchTickersRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).FetchTickers(context.Background())
	var te *TransportError
	if !errors.As(err, &te) || te.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected TransportError 502, got %v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("expected 1 attempt + 3 retries, got %d", got)
	}
}

func TestFetchTickersNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := NewClient(testConfig(srv.URL)).FetchTickers(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestFetchCandlesAscending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("bar") != "1H" || r.URL.Query().Get("limit") != "3" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"code":"0","msg":"","data":[
			["1700007200000","3","4","2","3.5","30","0","0","1"],
			["1700003600000","2","3","1","2.5","20","0","0","1"],
			["1700000000000","1","2","0.5","1.5","10","0","0","1"]
		]}`))
	}))
	defer srv.Close()

	got, err := NewClient(testConfig(srv.URL)).FetchCandles(context.Background(), "BTC-USDT", drepo.Bar1H, 3)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(got))
	}
	for i, want := range []float64{1.5, 2.5, 3.5} {
		if got[i].Close != want {
			t.Fatalf("candle %d close: got %v want %v", i, got[i].Close, want)
		}
	}
	if !got[0].Bucket.Before(got[2].Bucket) {
		t.Fatalf("candles not ascending")
	}
}

type failingFetcher struct{ err error }

func (f failingFetcher) FetchTickers(context.Context) ([]models.Ticker, error) { return nil, f.err }

func TestGatewayFallsBackToSynthetic(t *testing.T) {
	g := NewGateway(failingFetcher{err: &TransportError{Op: "tickers", Err: errors.New("connection refused")}},
		"USDT", true, nil, applogger.NewNop(), WithRand(rand.New(rand.NewPCG(1, 2))))

	batch, err := g.FetchTickers(context.Background())
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}
	if !batch.Synthetic || batch.FallbackReason == "" {
		t.Fatalf("synthetic batch must be flagged: %+v", batch)
	}
	if len(batch.Tickers) != len(Roster) {
		t.Fatalf("expected %d tickers, got %d", len(Roster), len(batch.Tickers))
	}
	for _, tk := range batch.Tickers {
		if tk.Quote() != "USDT" || tk.Last < 10 || tk.Last >= 1010 {
			t.Fatalf("unexpected synthetic ticker %+v", tk)
		}
	}
}

func TestGatewayWithoutFallback(t *testing.T) {
	g := NewGateway(failingFetcher{err: &MalformedResponseError{Op: "tickers", Code: "1"}}, "USDT", false, nil, applogger.NewNop())
	if _, err := g.FetchTickers(context.Background()); err == nil {
		t.Fatalf("expected error when fallback is disabled")
	}
}
