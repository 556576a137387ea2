package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"CoinScout/pkg/config"
	applogger "CoinScout/pkg/logger"
)

type event struct {
	mu  sync.Mutex
	log []string
}

func (e *event) add(s string) {
	e.mu.Lock()
	e.log = append(e.log, s)
	e.mu.Unlock()
}

func (e *event) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

type fakeOrch struct {
	ev       *event
	initErr  error
	startErr error
}

func (f *fakeOrch) Init(context.Context) error  { f.ev.add("init"); return f.initErr }
func (f *fakeOrch) Start(context.Context) error { f.ev.add("start"); return f.startErr }
func (f *fakeOrch) Stop(context.Context) error  { f.ev.add("orch-stop"); return nil }

type fakeHub struct {
	ev   *event
	done chan struct{}
}

func (h *fakeHub) Run(ctx context.Context) {
	<-ctx.Done()
	h.ev.add("hub-stop")
	close(h.done)
}
func (h *fakeHub) Done() <-chan struct{} { return h.done }

type fakeServer struct{ ev *event }

func (s *fakeServer) Start() error               { s.ev.add("http-start"); return nil }
func (s *fakeServer) Stop(context.Context) error { s.ev.add("http-stop"); return nil }

type fakeCloser struct {
	ev   *event
	name string
}

func (c fakeCloser) Close() error { c.ev.add("close-" + c.name); return nil }

func TestApp_StartupAndReverseShutdown(t *testing.T) {
	ev := &event{}
	app := New(config.Default(), applogger.NewNop(),
		&fakeOrch{ev: ev, initErr: errors.New("exchange down")},
		&fakeHub{ev: ev, done: make(chan struct{})},
		&fakeServer{ev: ev},
		WithCloser("cache", fakeCloser{ev: ev, name: "cache"}),
		WithCloser("clickhouse", fakeCloser{ev: ev, name: "clickhouse"}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.RunContext(ctx) }()

	deadline := time.Now().Add(time.Second)
	for len(ev.snapshot()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("app did not stop")
	}

	want := []string{"init", "start", "http-start", "http-stop", "orch-stop", "hub-stop", "close-clickhouse", "close-cache"}
	got := ev.snapshot()
	// hub-stop races with http-stop since the hub exits on context cancel
	filtered := make([]string, 0, len(got))
	hubSeen := false
	for _, s := range got {
		if s == "hub-stop" {
			hubSeen = true
			continue
		}
		filtered = append(filtered, s)
	}
	if !hubSeen {
		t.Fatalf("hub was not stopped: %v", got)
	}
	wantNoHub := []string{"init", "start", "http-start", "http-stop", "orch-stop", "close-clickhouse", "close-cache"}
	if len(filtered) != len(wantNoHub) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range wantNoHub {
		if filtered[i] != wantNoHub[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestApp_StartFailure(t *testing.T) {
	ev := &event{}
	app := New(config.Default(), applogger.NewNop(),
		&fakeOrch{ev: ev, startErr: errors.New("bad interval")},
		nil,
		&fakeServer{ev: ev},
	)
	if err := app.RunContext(context.Background()); err == nil {
		t.Fatalf("expected start error")
	}
	for _, s := range ev.snapshot() {
		if s == "http-start" {
			t.Fatalf("http server started after orchestrator failure")
		}
	}
}
