package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"CoinScout/internal/domain/models"
	domrepo "CoinScout/internal/domain/repository"
	pkgkafka "CoinScout/pkg/kafka"
	applogger "CoinScout/pkg/logger"
)

// Refresher runs one pipeline cycle on demand.
type Refresher interface {
	Refresh(ctx context.Context) (models.CycleReport, error)
}

// KafkaRefreshHandler turns refresh commands into pipeline cycles.
type KafkaRefreshHandler struct {
	topic     string
	refresher Refresher
	metrics   domrepo.Metrics
	log       *applogger.Logger
}

func NewKafkaRefreshHandler(topic string, refresher Refresher, metrics domrepo.Metrics, l *applogger.Logger) *KafkaRefreshHandler {
	return &KafkaRefreshHandler{topic: topic, refresher: refresher, metrics: metrics, log: l}
}

func (h *KafkaRefreshHandler) Topic() string { return h.topic }

// incoming message schema: {requestedBy, requestedAt}; an empty body is accepted
func (h *KafkaRefreshHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		RequestedBy string `json:"requestedBy"`
		RequestedAt int64  `json:"requestedAt"`
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &m); err != nil {
			h.recordError("refresh_unmarshal")
			// a malformed command is acknowledged, retrying cannot fix it
			h.log.Warn("refresh command ignored", applogger.Error(err))
			return nil
		}
	}
	if m.RequestedAt > 0 && h.metrics != nil {
		t := time.UnixMilli(m.RequestedAt)
		if m.RequestedAt < 1e12 {
			t = time.Unix(m.RequestedAt, 0)
		}
		h.metrics.RecordLatency("refresh_command_lag_seconds", time.Since(t).Seconds())
	}

	report, err := h.refresher.Refresh(ctx)
	if errors.Is(err, ErrRefreshInProgress) {
		h.log.Debug("refresh command skipped, cycle in progress",
			applogger.String("requested_by", m.RequestedBy),
			applogger.String("trace_id", pkgkafka.TraceID(ctx)),
		)
		return nil
	}
	if err != nil {
		h.recordError("refresh_cycle")
		return err
	}
	h.log.Info("refresh command handled",
		applogger.String("requested_by", m.RequestedBy),
		applogger.String("cycle_id", report.ID),
		applogger.String("trace_id", pkgkafka.TraceID(ctx)),
	)
	return nil
}

func (h *KafkaRefreshHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*KafkaRefreshHandler)(nil)
