package usecase

import (
	"testing"

	"CoinScout/internal/domain/models"
)

func TestRank_SortsAndTruncates(t *testing.T) {
	in := []models.ScoredAsset{
		{Symbol: "A", Score: 10},
		{Symbol: "B", Score: 45},
		{Symbol: "C", Score: 30},
		{Symbol: "D", Score: 45},
		{Symbol: "E", Score: 0},
	}
	out := Rank(in, 3)
	if len(out) != 3 {
		t.Fatalf("expected 3, got %d", len(out))
	}
	want := []string{"B", "D", "C"}
	for i, w := range want {
		if out[i].Symbol != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, out[i].Symbol)
		}
	}
	if in[0].Symbol != "A" {
		t.Fatalf("input reordered")
	}
}

func TestRank_ShorterThanTopN(t *testing.T) {
	in := []models.ScoredAsset{{Symbol: "A", Score: 1}, {Symbol: "B", Score: 2}}
	out := Rank(in, 20)
	if len(out) != 2 || out[0].Symbol != "B" {
		t.Fatalf("unexpected ranking: %+v", out)
	}
	if got := Rank(nil, 5); len(got) != 0 {
		t.Fatalf("expected empty ranking, got %d", len(got))
	}
}
