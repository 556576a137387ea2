package okx

import (
	"math/rand/v2"
	"time"

	"CoinScout/internal/domain/models"
)

// Roster is the fixed symbol set used for synthetic tickers.
var Roster = []string{
	"BTC", "ETH", "BNB", "ADA", "SOL", "XRP", "DOT", "DOGE", "AVAX", "SHIB",
	"MATIC", "LTC", "UNI", "LINK", "ATOM", "XLM", "VET", "FIL", "TRX", "ETC",
	"THETA", "XMR", "ALGO", "AAVE", "MKR", "COMP", "SUSHI", "YFI", "SNX", "CRV",
	"NEAR", "SAND", "MANA", "AXS", "ICP", "FTM", "HBAR", "EGLD", "XTZ", "FLOW",
}

// SyntheticTickers returns one randomly valued ticker per roster symbol.
// The shape always matches a real fetch so downstream stages are unaffected.
func SyntheticTickers(rng *rand.Rand, quote string, now time.Time) []models.Ticker {
	out := make([]models.Ticker, 0, len(Roster))
	for _, sym := range Roster {
		base := rng.Float64()*1000 + 10
		out = append(out, models.Ticker{
			InstID:    sym + "-" + quote,
			Last:      base,
			Open24h:   base * (0.95 + rng.Float64()*0.1),
			High24h:   base * (1 + rng.Float64()*0.1),
			Low24h:    base * (0.9 + rng.Float64()*0.1),
			Vol24h:    rng.Float64() * 10_000_000,
			VolCcy24h: rng.Float64() * 100_000_000,
			Timestamp: now,
		})
	}
	return out
}
