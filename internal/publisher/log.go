package publisher

import (
	"context"
	"log/slog"

	"github.com/randytsao24/busalert/internal/alerts"
)

// LogNotifier writes notifications to the log. It is used when no broker is
// configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, notifications []alerts.Notification) error {
	for _, n := range notifications {
		if n.Alert == nil {
			continue
		}
		m := NewMessage(n)
		l.logger.InfoContext(ctx, "alert satisfied",
			"alert", m.AlertID,
			"stop", m.StopCode,
			"service", m.Service,
			"eta", m.ETA,
			"trigger", m.TimeTrigger,
		)
	}
	return nil
}
