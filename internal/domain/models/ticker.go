package models

import (
	"strings"
	"time"
)

// Ticker is one exchange-reported 24h snapshot for a spot pair.
type Ticker struct {
	InstID    string    `json:"instId"`
	Last      float64   `json:"last"`
	Open24h   float64   `json:"open24h"`
	High24h   float64   `json:"high24h"`
	Low24h    float64   `json:"low24h"`
	Vol24h    float64   `json:"vol24h"`
	VolCcy24h float64   `json:"volCcy24h"`
	Timestamp time.Time `json:"ts"`
}

// Base returns the base currency of the instrument ("BTC" for "BTC-USDT").
func (t Ticker) Base() string {
	base, _, _ := strings.Cut(t.InstID, "-")
	return base
}

// Quote returns the quote currency, or "" when the id has no separator.
func (t Ticker) Quote() string {
	_, quote, ok := strings.Cut(t.InstID, "-")
	if !ok {
		return ""
	}
	return quote
}

// ChangePercent is the 24h percent change against the open price.
func (t Ticker) ChangePercent() float64 {
	if t.Open24h <= 0 {
		return 0
	}
	return (t.Last - t.Open24h) / t.Open24h * 100
}

// TickerBatch is the result of one gateway fetch. Synthetic marks generated data.
type TickerBatch struct {
	Tickers        []Ticker
	Synthetic      bool
	FallbackReason string
	FetchedAt      time.Time
}

// Candle represents an OHLCV record in ascending time order.
type Candle struct {
	Bucket time.Time `json:"ts"`
	Symbol string    `json:"symbol"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}
