package analytics

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"CoinScout/internal/domain/models"
	drepo "CoinScout/internal/domain/repository"
	"CoinScout/pkg/config"
)

func mkCandles(start, step float64, n int) []models.Candle {
	out := make([]models.Candle, n)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		p := start + float64(i)*step
		out[i] = models.Candle{
			Bucket: t0.Add(time.Duration(i) * time.Hour),
			Open:   p * 0.999,
			High:   p * 1.001,
			Low:    p * 0.998,
			Close:  p,
			Volume: 1000 + float64(i)*10,
		}
	}
	return out
}

type stubSource struct {
	candles []models.Candle
	err     error
}

func (s stubSource) GetLatestNCandles(context.Context, string, int, drepo.Bar) ([]models.Candle, error) {
	return s.candles, s.err
}

func TestComputeUptrend(t *testing.T) {
	cfg := config.Default().Indicators
	candles := mkCandles(100, 1, 60)
	price := candles[len(candles)-1].Close

	snap := Compute(price, candles, cfg)
	if snap.RSI != 100 {
		t.Fatalf("expected rsi 100 on a lossless series, got %v", snap.RSI)
	}
	if snap.TrendStrength != 1 {
		t.Fatalf("expected trend strength 1, got %v", snap.TrendStrength)
	}
	if snap.MACD <= 0 {
		t.Fatalf("expected positive macd, got %v", snap.MACD)
	}
	if snap.SMA <= snap.SMAPrevious || snap.PreviousPrice != candles[len(candles)-2].Close {
		t.Fatalf("unexpected moving average fields: %+v", snap)
	}
	if !snap.NearResistance {
		t.Fatalf("price at the top of the range should be near resistance (res=%v)", snap.Resistance)
	}
	if !snap.VolumeIncrease {
		t.Fatalf("rising volume should flag an increase")
	}
	if snap.Support >= snap.Resistance {
		t.Fatalf("support %v must be below resistance %v", snap.Support, snap.Resistance)
	}
}

func TestComputeShortHistoryIsNeutral(t *testing.T) {
	snap := Compute(10, mkCandles(10, 0.1, 5), config.Default().Indicators)
	if snap.RSI != 50 || snap.RSIPrevious != 50 {
		t.Fatalf("expected neutral rsi, got %v/%v", snap.RSI, snap.RSIPrevious)
	}
	if snap.MACD != 0 || snap.SMA != 0 || snap.MACDCrossover {
		t.Fatalf("expected neutral macd/sma, got %+v", snap)
	}
}

func TestCandleEngineErrors(t *testing.T) {
	cfg := config.Default().Indicators
	e := NewCandleEngine(stubSource{candles: mkCandles(1, 1, 1)}, models.SourceOKX, cfg)
	if _, _, err := e.Snapshot(context.Background(), models.Ticker{InstID: "BTC-USDT", Last: 1}); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}

	boom := errors.New("boom")
	e = NewCandleEngine(stubSource{err: boom}, models.SourceOKX, cfg)
	if _, _, err := e.Snapshot(context.Background(), models.Ticker{InstID: "BTC-USDT", Last: 1}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}

	e = NewCandleEngine(stubSource{candles: mkCandles(100, 1, 60)}, models.SourceClickHouse, cfg)
	_, src, err := e.Snapshot(context.Background(), models.Ticker{InstID: "BTC-USDT", Last: 159})
	if err != nil || src != models.SourceClickHouse {
		t.Fatalf("unexpected result src=%q err=%v", src, err)
	}
}

func TestSyntheticEngineRanges(t *testing.T) {
	e := NewSyntheticEngine(rand.New(rand.NewPCG(7, 11)))
	tk := models.Ticker{InstID: "ETH-USDT", Last: 100, High24h: 110, Low24h: 90}
	for i := 0; i < 200; i++ {
		snap, src, err := e.Snapshot(context.Background(), tk)
		if err != nil || src != models.SourceSynthetic {
			t.Fatalf("unexpected result src=%q err=%v", src, err)
		}
		if snap.RSI < 0 || snap.RSI > 100 || snap.TrendStrength < 0 || snap.TrendStrength >= 1 {
			t.Fatalf("value out of range: %+v", snap)
		}
		if snap.SMA < 95 || snap.SMA > 105 {
			t.Fatalf("sma out of band: %v", snap.SMA)
		}
	}
}
