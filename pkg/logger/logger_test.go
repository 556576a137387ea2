package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) all() []AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []AggregatedLogEntry
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestCollector_AggregatesRepeats(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		c.AddLog("error", "fetch failed", map[string]interface{}{"op": "tickers"}, "okx/client.go:10")
	}
	c.AddLog("warn", "slow", nil, "x.go:1")
	c.Close()

	entries := pub.all()
	if len(entries) != 2 || pub.topic != "logs" {
		t.Fatalf("expected 2 entries on logs, got %d on %q", len(entries), pub.topic)
	}
	var counts = map[string]int{}
	for _, e := range entries {
		counts[e.Message] = e.Count
	}
	if counts["fetch failed"] != 3 || counts["slow"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestCollector_ThresholdFlush(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	c.AddLog("error", "a", nil, "")
	c.AddLog("error", "b", nil, "")
	c.Close()

	if got := len(pub.all()); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
}

func TestLogger_ChildrenShareCollector(t *testing.T) {
	root := NewNop()
	child := root.With(String("component", "okx"))

	pub := &capturePublisher{}
	root.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Publisher: pub})

	child.Info("ignored")
	child.Warn("retrying", Int("attempt", 2))
	child.Error("gave up", Error(errors.New("timeout")))
	root.RemoveCollector()

	entries := pub.all()
	if len(entries) != 2 {
		t.Fatalf("expected warn and error entries, got %+v", entries)
	}
	for _, e := range entries {
		if e.Message == "gave up" && e.Fields["error"] != "timeout" {
			t.Fatalf("error field not captured: %+v", e.Fields)
		}
	}

	child.Error("after removal")
	if len(pub.all()) != 2 {
		t.Fatalf("collector still attached")
	}
}
