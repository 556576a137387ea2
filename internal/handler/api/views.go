package api

import (
	"time"

	"CoinScout/internal/domain/models"
	"CoinScout/pkg/util"
)

// CardView is the summary row rendered for each ranked asset.
type CardView struct {
	Rank          int             `json:"rank"`
	Symbol        string          `json:"symbol"`
	InstID        string          `json:"instId"`
	Price         float64         `json:"price"`
	PriceChange   float64         `json:"priceChange"`
	Volume24h     float64         `json:"volume24h"`
	Volume24hText string          `json:"volume24hText"`
	Score         float64         `json:"score"`
	SignalCount   int             `json:"signalCount"`
	Strength      models.Strength `json:"strength"`
	DataSource    string          `json:"dataSource"`
}

// DetailView is the full breakdown of one asset.
type DetailView struct {
	CardView
	Analysis   models.Analysis          `json:"analysis"`
	Indicators models.IndicatorSnapshot `json:"indicators"`
	Signals    []models.Signal          `json:"signals"`
	Timestamp  time.Time                `json:"timestamp"`
}

// PortfolioView wraps the cards with snapshot metadata.
type PortfolioView struct {
	Cards      []CardView `json:"cards"`
	Total      int        `json:"total"`
	LastUpdate time.Time  `json:"lastUpdate"`
	Synthetic  bool       `json:"synthetic"`
}

// NewCard renders one asset. rank is its 1-based position in the ranked portfolio.
func NewCard(a models.ScoredAsset, rank int) CardView {
	return CardView{
		Rank:          rank,
		Symbol:        a.Symbol,
		InstID:        a.InstID,
		Price:         a.Price,
		PriceChange:   a.PriceChange,
		Volume24h:     a.Volume24h,
		Volume24hText: util.FormatCompact(a.Volume24h),
		Score:         a.Score,
		SignalCount:   len(a.Signals),
		Strength:      a.Analysis.Strength,
		DataSource:    a.DataSource,
	}
}

// NewCards renders assets keeping their portfolio rank, even when the list is a filtered subset.
func NewCards(assets []models.ScoredAsset, p models.RankedPortfolio) []CardView {
	ranks := make(map[string]int, len(p.Coins))
	for i, c := range p.Coins {
		ranks[c.InstID] = i + 1
	}
	cards := make([]CardView, 0, len(assets))
	for i, a := range assets {
		rank, ok := ranks[a.InstID]
		if !ok {
			rank = i + 1
		}
		cards = append(cards, NewCard(a, rank))
	}
	return cards
}

func NewDetail(a models.ScoredAsset, rank int) DetailView {
	signals := a.Signals
	if signals == nil {
		signals = []models.Signal{}
	}
	return DetailView{
		CardView:   NewCard(a, rank),
		Analysis:   a.Analysis,
		Indicators: a.Indicators,
		Signals:    signals,
		Timestamp:  a.Timestamp,
	}
}
