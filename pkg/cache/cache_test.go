package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type sample struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestMemoryCache_TypedRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", sample{Name: "BTC", Score: 45}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got sample
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "BTC" || got.Score != 45 {
		t.Fatalf("unexpected value: %+v", got)
	}
}

func TestMemoryCache_MissAndDelete(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	var got sample
	if err := mc.Get(ctx, "absent", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	_ = mc.Set(ctx, "k", "v", 0)
	if ok, _ := mc.Exists(ctx, "k"); !ok {
		t.Fatalf("expected key to exist")
	}
	_ = mc.Delete(ctx, "k")
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Fatalf("expected key to be deleted")
	}
}

func TestMemoryCache_EvictsWhenFull(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	_ = mc.Set(ctx, "b", "2", time.Minute)
	_ = mc.Set(ctx, "c", "3", time.Minute)

	count := 0
	for _, k := range []string{"a", "b", "c"} {
		if ok, _ := mc.Exists(ctx, k); ok {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 keys after eviction, got %d", count)
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", 0)
	_ = mc.Set(ctx, "b", "2", 0)
	var v string
	_ = mc.Get(ctx, "a", &v) // b becomes the oldest
	_ = mc.Set(ctx, "c", "3", 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if ok, _ := mc.Exists(ctx, "a"); !ok {
		t.Fatalf("expected a to survive")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	_ = mc.Set(ctx, "snap", "x", time.Hour)

	now = now.Add(59 * time.Minute)
	var v string
	if err := mc.Get(ctx, "snap", &v); err != nil || v != "x" {
		t.Fatalf("expected hit before expiry: %v %q", err, v)
	}

	now = now.Add(2 * time.Minute)
	if err := mc.Get(ctx, "snap", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
	if mc.Len() != 0 {
		t.Fatalf("expired entry not removed")
	}
}

func TestFileCache_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")
	ctx := context.Background()

	fc, err := NewFileCache(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := fc.Set(ctx, "k", sample{Name: "ETH", Score: 30}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := fc.Set(ctx, "raw", "not json", 0); err != nil {
		t.Fatalf("set raw: %v", err)
	}

	reopened, err := NewFileCache(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var got sample
	if err := reopened.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "ETH" || got.Score != 30 {
		t.Fatalf("unexpected value: %+v", got)
	}
	var raw string
	if err := reopened.Get(ctx, "raw", &raw); err != nil || raw != "not json" {
		t.Fatalf("raw round trip: %q %v", raw, err)
	}
}

func TestFileCache_Miss(t *testing.T) {
	fc, err := NewFileCache(filepath.Join(t.TempDir(), "c.json"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var got sample
	if err := fc.Get(context.Background(), "absent", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}
