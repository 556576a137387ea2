package usecase

import (
	"context"
	"errors"
	"testing"

	"CoinScout/internal/domain/models"
	applogger "CoinScout/pkg/logger"
)

type stubRefresher struct {
	calls int
	err   error
}

func (r *stubRefresher) Refresh(context.Context) (models.CycleReport, error) {
	r.calls++
	return models.CycleReport{ID: "x"}, r.err
}

func TestKafkaRefreshHandler(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		err     error
		wantErr bool
		calls   int
	}{
		{name: "ok", body: `{"requestedBy":"ops"}`, calls: 1},
		{name: "empty body", body: "", calls: 1},
		{name: "in progress is acknowledged", body: `{}`, err: ErrRefreshInProgress, calls: 1},
		{name: "cycle failure is retried", body: `{}`, err: errors.New("down"), wantErr: true, calls: 1},
		{name: "malformed is dropped", body: `{`, calls: 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := &stubRefresher{err: c.err}
			h := NewKafkaRefreshHandler("coinscout.refresh", r, newCountingMetrics(), applogger.NewNop())
			err := h.Handle(context.Background(), []byte(c.body))
			if (err != nil) != c.wantErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.calls != c.calls {
				t.Fatalf("expected %d refresh calls, got %d", c.calls, r.calls)
			}
		})
	}
}
