package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"CoinScout/internal/domain/models"
	domrepo "CoinScout/internal/domain/repository"
	applogger "CoinScout/pkg/logger"
)

const portfolioEventKey = "portfolio"

// MessagePublisher is the subset of the Kafka producer used here.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// PortfolioEvent is published after every successful cycle.
type PortfolioEvent struct {
	ID          string               `json:"id"`
	CycleID     string               `json:"cycleId"`
	GeneratedAt time.Time            `json:"generatedAt"`
	Synthetic   bool                 `json:"synthetic"`
	Coins       []models.ScoredAsset `json:"coins"`
}

// KafkaPublisher implements PortfolioObserver for Kafka.
type KafkaPublisher struct {
	producer MessagePublisher
	topic    string
	timeout  time.Duration
	l        *applogger.Logger
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer MessagePublisher, topic string, timeout time.Duration, l *applogger.Logger) *KafkaPublisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaPublisher{producer: producer, topic: topic, timeout: timeout, l: l}
}

// Publish sends one portfolio event keyed by "portfolio".
func (p *KafkaPublisher) Publish(ctx context.Context, portfolio models.RankedPortfolio) (PortfolioEvent, error) {
	ev := PortfolioEvent{
		ID:          uuid.NewString(),
		CycleID:     portfolio.CycleID,
		GeneratedAt: portfolio.LastUpdate.UTC(),
		Synthetic:   portfolio.Synthetic,
		Coins:       portfolio.Coins,
	}
	if ev.Coins == nil {
		ev.Coins = []models.ScoredAsset{}
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.producer.Publish(ctx, p.topic, []byte(portfolioEventKey), ev); err != nil {
		return ev, fmt.Errorf("publish portfolio event: %w", err)
	}
	return ev, nil
}

// OnPortfolio publishes successful cycles only.
func (p *KafkaPublisher) OnPortfolio(ctx context.Context, portfolio models.RankedPortfolio, report models.CycleReport, err error) {
	if err != nil {
		return
	}
	ev, perr := p.Publish(ctx, portfolio)
	if perr != nil {
		p.l.Warn("portfolio event not published",
			applogger.String("cycle_id", report.ID),
			applogger.String("topic", p.topic),
			applogger.Error(perr),
		)
		return
	}
	p.l.Debug("portfolio event published",
		applogger.String("event_id", ev.ID),
		applogger.String("cycle_id", report.ID),
		applogger.Int("coins", len(ev.Coins)),
	)
}

var _ domrepo.PortfolioObserver = (*KafkaPublisher)(nil)
