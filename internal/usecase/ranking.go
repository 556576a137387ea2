package usecase

import (
	"sort"

	"CoinScout/internal/domain/models"
)

// Rank sorts by score descending and keeps the first topN. Equal scores keep input order.
func Rank(assets []models.ScoredAsset, topN int) []models.ScoredAsset {
	out := make([]models.ScoredAsset, len(assets))
	copy(out, assets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topN >= 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
