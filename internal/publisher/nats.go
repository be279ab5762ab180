// Package publisher delivers alert notifications.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/randytsao24/busalert/internal/alerts"
)

// Metrics receives publishing outcomes.
type Metrics interface {
	NotificationPublished()
	NotificationFailed()
	SetConnected(connected bool)
}

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

type NATSPublisher struct {
	conn    Conn
	nc      *nats.Conn
	subject string
	metrics Metrics
	logger  *slog.Logger
}

// NewNATSPublisher connects to url. Notifications go to <subject>.<stopCode>.
func NewNATSPublisher(url, subject string, m Metrics, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("busalert"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.SetConnected(false)
			}
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(true)
			}
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	if m != nil {
		m.SetConnected(true)
	}
	p := NewPublisher(nc, subject, m, logger)
	p.nc = nc
	return p, nil
}

// NewPublisher publishes over an existing connection.
func NewPublisher(conn Conn, subject string, m Metrics, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{conn: conn, subject: subject, metrics: m, logger: logger}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// Message is the JSON body of one notification.
type Message struct {
	AlertID     string    `json:"alertId"`
	StopCode    string    `json:"stopCode"`
	StopName    string    `json:"stopName,omitempty"`
	Service     string    `json:"service"`
	Destination string    `json:"destination,omitempty"`
	ETA         int       `json:"eta"`
	TimeTrigger int       `json:"timeTrigger"`
	Estimated   bool      `json:"estimated"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

// NewMessage flattens n into its wire form.
func NewMessage(n alerts.Notification) Message {
	return Message{
		AlertID:     n.Alert.ID.String(),
		StopCode:    n.Alert.Stop.Code(),
		StopName:    n.StopName,
		Service:     n.Departure.Service.Name,
		Destination: n.Departure.Destination,
		ETA:         n.Departure.ETA,
		TimeTrigger: n.Alert.TimeTrigger,
		Estimated:   n.Departure.Estimated,
		ReceivedAt:  n.ReceivedAt,
	}
}

// Notify publishes every notification and flushes. Failed publishes do not
// stop the rest; their errors are joined.
func (p *NATSPublisher) Notify(ctx context.Context, notifications []alerts.Notification) error {
	var errs []error
	for _, n := range notifications {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n.Alert == nil {
			continue
		}
		subject := fmt.Sprintf("%s.%s", p.subject, subjectToken(n.Alert.Stop.Code()))
		b, err := json.Marshal(NewMessage(n))
		if err == nil {
			err = p.conn.Publish(subject, b)
		}
		if err != nil {
			p.failed()
			errs = append(errs, fmt.Errorf("publish %s: %w", subject, err))
			continue
		}
		if p.metrics != nil {
			p.metrics.NotificationPublished()
		}
		p.logger.Debug("nats publish", "subject", subject, "alert", n.Alert.ID)
	}
	if len(notifications) > 0 {
		if err := p.conn.FlushWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (p *NATSPublisher) failed() {
	if p.metrics != nil {
		p.metrics.NotificationFailed()
	}
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
