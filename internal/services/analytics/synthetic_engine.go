package analytics

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"CoinScout/internal/domain/models"
)

// SyntheticEngine draws uniformly random indicator values. It reproduces the
// placeholder behaviour of the first dashboard and is meant for demo and parity runs.
type SyntheticEngine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticEngine creates an engine. A nil rng seeds from the clock.
func NewSyntheticEngine(rng *rand.Rand) *SyntheticEngine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x2545f4914f6cdd1d))
	}
	return &SyntheticEngine{rng: rng}
}

// Snapshot implements domsvc.IndicatorEngine.
func (e *SyntheticEngine) Snapshot(_ context.Context, t models.Ticker) (models.IndicatorSnapshot, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := e.rng.Float64
	price := t.Last
	return models.IndicatorSnapshot{
		RSI:            r() * 100,
		RSIPrevious:    r() * 100,
		MACD:           (r() - 0.5) * 10,
		MACDSignal:     (r() - 0.5) * 10,
		MACDCrossover:  r() > 0.7,
		SMA:            price * (0.95 + r()*0.1),
		SMAPrevious:    price * (0.95 + r()*0.1),
		PreviousPrice:  price * (0.98 + r()*0.04),
		Resistance:     t.High24h * (1 + r()*0.05),
		Support:        t.Low24h * (0.95 + r()*0.05),
		NearResistance: r() > 0.6,
		Liquidity:      (r() - 0.5) * 100,
		LiquidityCross: r() > 0.8,
		VolumeIncrease: r() > 0.5,
		VolumeChange:   (r() - 0.5) * 200,
		TrendStrength:  r(),
	}, models.SourceSynthetic, nil
}
