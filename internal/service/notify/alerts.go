package notify

import (
	"context"
	"fmt"
	"strings"

	"CoinScout/internal/domain/models"
	domsvc "CoinScout/internal/domain/service"
	applogger "CoinScout/pkg/logger"
	"CoinScout/pkg/util"
)

// AlertObserver turns cycle results into notifier messages.
type AlertObserver struct {
	n           domsvc.Notifier
	strongCount int
	l           *applogger.Logger
}

func NewAlertObserver(n domsvc.Notifier, strongCount int, l *applogger.Logger) *AlertObserver {
	if strongCount <= 0 {
		strongCount = 5
	}
	return &AlertObserver{n: n, strongCount: strongCount, l: l}
}

// OnPortfolio sends at most one message per cycle. Delivery errors are logged only.
func (a *AlertObserver) OnPortfolio(ctx context.Context, p models.RankedPortfolio, report models.CycleReport, err error) {
	text := a.Format(p, report, err)
	if text == "" {
		return
	}
	if nerr := a.n.Notify(ctx, text); nerr != nil {
		a.l.Warn("alert delivery failed", applogger.String("cycle_id", report.ID), applogger.Error(nerr))
	}
}

// Format renders the alert for one cycle, or "" when there is nothing to report.
func (a *AlertObserver) Format(p models.RankedPortfolio, report models.CycleReport, err error) string {
	if err != nil {
		return fmt.Sprintf("CoinScout cycle %s failed: %v", report.ID, err)
	}

	var b strings.Builder
	if p.Synthetic {
		reason := report.FallbackReason
		if reason == "" {
			reason = "exchange unavailable"
		}
		fmt.Fprintf(&b, "Warning: portfolio built from synthetic data (%s)\n", reason)
	}

	strong := 0
	for i, c := range p.Coins {
		if len(c.Signals) < a.strongCount {
			continue
		}
		if strong == 0 {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("Strong signals:\n")
		}
		strong++
		fmt.Fprintf(&b, "#%d %s score %.0f, %d signals, price %s, vol %s\n",
			i+1, c.Symbol, c.Score, len(c.Signals), formatPrice(c.Price), util.FormatCompact(c.Volume24h))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPrice(v float64) string {
	switch {
	case v >= 1:
		return fmt.Sprintf("%.2f", v)
	case v >= 0.01:
		return fmt.Sprintf("%.4f", v)
	default:
		return fmt.Sprintf("%.8f", v)
	}
}
