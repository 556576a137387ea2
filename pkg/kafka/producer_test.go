package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { w.closed = true; return nil }

func TestProducer_PublishEncodesAndPropagatesTrace(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "none")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	ctx := WithTraceID(context.Background(), "cycle-1")
	if err := p.Publish(ctx, "coinscout.portfolio", []byte("portfolio"), map[string]int{"coins": 3}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	m := w.msgs[0]
	if m.Topic != "coinscout.portfolio" || string(m.Key) != "portfolio" || string(m.Value) != `{"coins":3}` {
		t.Fatalf("unexpected message: %+v", m)
	}
	if !m.Time.Equal(fixed) || ExtractTraceID(m) != "cycle-1" {
		t.Fatalf("unexpected time or trace: %v %q", m.Time, ExtractTraceID(m))
	}

	if err := p.PublishMessage(context.Background(), "logs", "raw"); err != nil {
		t.Fatalf("publish message: %v", err)
	}
	if string(w.msgs[1].Value) != "raw" || w.msgs[1].Key != nil {
		t.Fatalf("unexpected raw message: %+v", w.msgs[1])
	}

	_ = p.Close()
	if !w.closed {
		t.Fatalf("writer not closed")
	}
}

func TestProducer_PublishError(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("leader not available")}, "none")
	if err := p.Publish(context.Background(), "t", nil, "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewProducer_Validation(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("brotli")); err == nil {
		t.Fatalf("expected error for unknown compression")
	}
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("none"), WithHashByKey(true))
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	_ = p.Close()
}
