package usecase

import (
	"strings"

	"CoinScout/internal/domain/models"
	"CoinScout/pkg/config"
)

// TickerFilter drops stablecoins, foreign-quoted pairs and illiquid or dust-priced tickers.
type TickerFilter struct {
	excluded  map[string]struct{}
	quote     string
	minPrice  float64
	minVolume float64
}

func NewTickerFilter(cfg config.Strategy) *TickerFilter {
	return &TickerFilter{
		excluded:  cfg.ExcludedSet(),
		quote:     strings.ToUpper(cfg.QuoteCurrency),
		minPrice:  cfg.MinPrice,
		minVolume: cfg.MinVolume,
	}
}

// Accept reports whether a single ticker passes every predicate.
func (f *TickerFilter) Accept(t models.Ticker) bool {
	if t.InstID == "" {
		return false
	}
	if _, ok := f.excluded[strings.ToUpper(t.Base())]; ok {
		return false
	}
	if strings.ToUpper(t.Quote()) != f.quote {
		return false
	}
	if t.Last < f.minPrice || t.VolCcy24h < f.minVolume {
		return false
	}
	return true
}

// Apply returns the accepted tickers in their original order. The input is not modified.
func (f *TickerFilter) Apply(tickers []models.Ticker) []models.Ticker {
	out := make([]models.Ticker, 0, len(tickers))
	for _, t := range tickers {
		if f.Accept(t) {
			out = append(out, t)
		}
	}
	return out
}
