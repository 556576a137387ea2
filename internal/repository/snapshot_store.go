package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"CoinScout/internal/domain/models"
	"CoinScout/pkg/cache"
	applogger "CoinScout/pkg/logger"
)

var (
	// ErrSnapshotStale is returned when the stored snapshot is older than the max age.
	ErrSnapshotStale = errors.New("snapshot is stale")
	// ErrSnapshotCorrupt is returned when the stored blob cannot be decoded.
	ErrSnapshotCorrupt = errors.New("snapshot is corrupt")
	// ErrSnapshotMissing is returned when nothing has been stored yet.
	ErrSnapshotMissing = errors.New("snapshot not found")
)

// IsSnapshotMiss reports whether err means "no usable snapshot" rather than a backend failure.
func IsSnapshotMiss(err error) bool {
	return errors.Is(err, ErrSnapshotMissing) || errors.Is(err, ErrSnapshotStale) || errors.Is(err, ErrSnapshotCorrupt)
}

// snapshotBlob is the persisted layout.
type snapshotBlob struct {
	Coins      []models.ScoredAsset `json:"coins"`
	LastUpdate string               `json:"lastUpdate"`
	Timestamp  int64                `json:"timestamp"`
	Synthetic  bool                 `json:"synthetic"`
	CycleID    string               `json:"cycleId,omitempty"`
}

// CacheSnapshotStore keeps one ranked portfolio under a fixed key of a cache backend.
type CacheSnapshotStore struct {
	cache  cache.Service
	key    string
	maxAge time.Duration
	now    func() time.Time
	l      *applogger.Logger
}

// SnapshotOption configures CacheSnapshotStore.
type SnapshotOption func(*CacheSnapshotStore)

// WithSnapshotClock overrides the clock used for staleness checks.
func WithSnapshotClock(now func() time.Time) SnapshotOption {
	return func(s *CacheSnapshotStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSnapshotLogger injects a structured logger.
func WithSnapshotLogger(l *applogger.Logger) SnapshotOption {
	return func(s *CacheSnapshotStore) { s.l = l }
}

func NewCacheSnapshotStore(c cache.Service, key string, maxAge time.Duration, opts ...SnapshotOption) *CacheSnapshotStore {
	s := &CacheSnapshotStore{
		cache:  c,
		key:    key,
		maxAge: maxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Persist overwrites the stored snapshot. The portfolio's LastUpdate is the snapshot timestamp,
// so re-persisting a restored portfolio never extends its lifetime.
func (s *CacheSnapshotStore) Persist(ctx context.Context, p models.RankedPortfolio) error {
	now := s.now()
	captured := p.LastUpdate
	if captured.IsZero() || captured.After(now) {
		captured = now
	}
	ttl := s.maxAge - now.Sub(captured)
	if ttl <= 0 {
		if s.l != nil {
			s.l.Debug("snapshot too old to persist",
				applogger.String("key", s.key),
				applogger.Time("last_update", captured),
			)
		}
		return nil
	}
	blob := snapshotBlob{
		Coins:      p.Coins,
		LastUpdate: captured.UTC().Format(time.RFC3339Nano),
		Timestamp:  captured.UnixMilli(),
		Synthetic:  p.Synthetic,
		CycleID:    p.CycleID,
	}
	if blob.Coins == nil {
		blob.Coins = []models.ScoredAsset{}
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.cache.Set(ctx, s.key, data, ttl); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	if s.l != nil {
		s.l.Debug("snapshot persisted",
			applogger.String("key", s.key),
			applogger.Int("coins", len(blob.Coins)),
			applogger.Bool("synthetic", blob.Synthetic),
		)
	}
	return nil
}

// Restore returns the stored snapshot if it is younger than the max age.
func (s *CacheSnapshotStore) Restore(ctx context.Context) (models.RankedPortfolio, error) {
	var data []byte
	if err := s.cache.Get(ctx, s.key, &data); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.RankedPortfolio{}, ErrSnapshotMissing
		}
		return models.RankedPortfolio{}, fmt.Errorf("restore snapshot: %w", err)
	}

	var blob snapshotBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return models.RankedPortfolio{}, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	if blob.Timestamp <= 0 {
		return models.RankedPortfolio{}, fmt.Errorf("%w: missing timestamp", ErrSnapshotCorrupt)
	}

	age := s.now().Sub(time.UnixMilli(blob.Timestamp))
	if age >= s.maxAge {
		if s.l != nil {
			s.l.Debug("snapshot stale",
				applogger.String("key", s.key),
				applogger.Duration("age", age),
			)
		}
		return models.RankedPortfolio{}, ErrSnapshotStale
	}

	lastUpdate, err := time.Parse(time.RFC3339Nano, blob.LastUpdate)
	if err != nil {
		lastUpdate = time.UnixMilli(blob.Timestamp).UTC()
	}
	return models.RankedPortfolio{
		Coins:      blob.Coins,
		LastUpdate: lastUpdate,
		Synthetic:  blob.Synthetic,
		CycleID:    blob.CycleID,
	}, nil
}
