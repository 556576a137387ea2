package notify

import (
	"context"

	applogger "CoinScout/pkg/logger"
)

// LogNotifier writes alerts to the application log.
type LogNotifier struct {
	l *applogger.Logger
}

func NewLogNotifier(l *applogger.Logger) *LogNotifier {
	return &LogNotifier{l: l}
}

func (n *LogNotifier) Notify(_ context.Context, text string) error {
	n.l.Info("alert", applogger.String("text", text))
	return nil
}
