package usecase

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"CoinScout/internal/domain/models"
	"CoinScout/pkg/config"
)

// ExportConfig is the non-secret strategy configuration embedded in exports.
type ExportConfig struct {
	Strategy   config.Strategy   `json:"strategy"`
	Indicators config.Indicators `json:"indicators"`
	Weights    config.Weights    `json:"weights"`
	Analysis   config.Analysis   `json:"analysis"`
}

// Export is the downloadable portfolio document.
type Export struct {
	Coins      []models.ScoredAsset `json:"coins"`
	ExportDate time.Time            `json:"exportDate"`
	Synthetic  bool                 `json:"synthetic"`
	Config     ExportConfig         `json:"config"`
}

func NewExport(p models.RankedPortfolio, cfg *config.Config, now time.Time) Export {
	coins := p.Coins
	if coins == nil {
		coins = []models.ScoredAsset{}
	}
	return Export{
		Coins:      coins,
		ExportDate: now.UTC(),
		Synthetic:  p.Synthetic,
		Config: ExportConfig{
			Strategy:   cfg.Strategy,
			Indicators: cfg.Indicators,
			Weights:    cfg.Weights,
			Analysis:   cfg.Analysis,
		},
	}
}

// ExportFilename returns trading-strategy-YYYY-MM-DD.<ext>.
func ExportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("trading-strategy-%s.%s", now.UTC().Format(time.DateOnly), ext)
}

var csvHeader = []string{
	"rank", "symbol", "inst_id", "price", "price_change", "volume_24h", "score", "signal_count",
	"confidence", "strength", "target1", "target2", "target3", "stop_loss", "risk_reward", "data_source",
}

// WriteCSV writes a header row and one row per asset, in rank order.
func WriteCSV(w io.Writer, coins []models.ScoredAsset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, c := range coins {
		a := c.Analysis
		row := []string{
			strconv.Itoa(i + 1),
			c.Symbol,
			c.InstID,
			num(c.Price),
			decimal.NewFromFloat(c.PriceChange).Round(2).String(),
			decimal.NewFromFloat(c.Volume24h).Round(2).String(),
			num(c.Score),
			strconv.Itoa(len(c.Signals)),
			num(a.Confidence),
			string(a.Strength),
			num(a.Targets.Target1),
			num(a.Targets.Target2),
			num(a.Targets.Target3),
			num(a.StopLoss),
			num(a.RiskReward),
			c.DataSource,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	return decimal.NewFromFloat(v).String()
}
