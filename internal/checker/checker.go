// Package checker runs alert check cycles: load pending alerts, fetch live
// times for their stops, notify the satisfied ones and retire them.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/randytsao24/busalert/internal/alerts"
	"github.com/randytsao24/busalert/internal/cache"
	"github.com/randytsao24/busalert/internal/livetimes"
	"github.com/randytsao24/busalert/internal/tracker"
)

// LiveTimesProvider fetches live times for several stops in one call.
type LiveTimesProvider interface {
	GetLiveTimesForStops(ctx context.Context, stopCodes []string, departures int) (*livetimes.LiveTimes, error)
}

// Observer receives the outcome of every completed cycle.
type Observer interface {
	ObserveCheck(evaluated, satisfied int, d time.Duration)
}

// Result summarizes one cycle.
type Result struct {
	Evaluated  int         `json:"evaluated"`
	Satisfied  int         `json:"satisfied"`
	Notified   int         `json:"notified"`
	Removed    []uuid.UUID `json:"removed"`
	ReceivedAt time.Time   `json:"receivedAt,omitzero"`
}

type Service struct {
	store      alerts.Store
	notifier   alerts.Notifier
	provider   LiveTimesProvider
	departures int
	notified   *cache.Cache[struct{}]
	observer   Observer
	logger     *slog.Logger
}

type Option func(*Service)

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDedupe suppresses a second notification for an alert still held in c,
// e.g. when removing it from the store failed.
func WithDedupe(c *cache.Cache[struct{}]) Option {
	return func(s *Service) { s.notified = c }
}

func NewService(store alerts.Store, notifier alerts.Notifier, provider LiveTimesProvider, departures int, opts ...Option) *Service {
	s := &Service{
		store:      store,
		notifier:   notifier,
		provider:   provider,
		departures: departures,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check runs one cycle. Tracker errors are returned as they are so the
// caller can ask tracker.Retryable.
func (s *Service) Check(ctx context.Context) (Result, error) {
	start := time.Now()
	var res Result

	pending, err := s.store.PendingAlerts(ctx)
	if err != nil {
		return res, fmt.Errorf("loading alerts: %w", err)
	}
	res.Evaluated = len(pending)

	codes := stopCodes(pending)
	if len(codes) == 0 {
		s.observe(res, start)
		return res, nil
	}

	live, err := s.provider.GetLiveTimesForStops(ctx, codes, s.departures)
	if err != nil {
		return res, err
	}
	res.ReceivedAt = live.ReceiveTime()

	satisfied := alerts.Evaluate(live, pending)
	res.Satisfied = len(satisfied)

	var notifications []alerts.Notification
	for _, a := range satisfied {
		if s.recentlyNotified(a.ID) {
			continue
		}
		d, _ := alerts.FirstMatch(live, a)
		stop, _ := live.Stop(a.Stop.Code())
		notifications = append(notifications, alerts.Notification{
			Alert:      a,
			StopName:   stop.Name,
			Departure:  d,
			ReceivedAt: live.ReceiveTime(),
		})
	}

	if len(notifications) > 0 {
		if err := s.notifier.Notify(ctx, notifications); err != nil {
			return res, fmt.Errorf("notifying: %w", err)
		}
		res.Notified = len(notifications)
		if s.notified != nil {
			for _, n := range notifications {
				s.notified.Set(n.Alert.ID.String(), struct{}{})
			}
		}
	}

	if len(satisfied) > 0 {
		ids := make([]uuid.UUID, len(satisfied))
		for i, a := range satisfied {
			ids[i] = a.ID
		}
		if err := s.store.RemoveAlerts(ctx, ids...); err != nil {
			return res, fmt.Errorf("removing alerts: %w", err)
		}
		res.Removed = ids
		if s.notified != nil {
			// Removed alerts can no longer come back.
			for _, id := range ids {
				s.notified.Delete(id.String())
			}
		}
	}

	s.observe(res, start)
	s.logger.Info("alert check",
		"evaluated", res.Evaluated,
		"satisfied", res.Satisfied,
		"notified", res.Notified,
		"duration", time.Since(start),
	)
	return res, nil
}

// Run checks every interval until ctx is done, for deployments without an
// external scheduler. Failed cycles are logged; non-retryable tracker errors
// at error level.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Check(ctx); err != nil {
			switch {
			case tracker.IsCancelled(err) || ctx.Err() != nil:
				return
			case tracker.Retryable(err):
				s.logger.Warn("alert check failed", "error", err, "kind", tracker.Kind(err))
			default:
				s.logger.Error("alert check failed", "error", err, "kind", tracker.Kind(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) recentlyNotified(id uuid.UUID) bool {
	if s.notified == nil {
		return false
	}
	_, ok := s.notified.Get(id.String())
	return ok
}

func (s *Service) observe(res Result, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveCheck(res.Evaluated, res.Satisfied, time.Since(start))
	}
}

// stopCodes lists the distinct stops of pending in first-seen order.
func stopCodes(pending []*alerts.ArrivalAlertRequest) []string {
	seen := make(map[string]bool, len(pending))
	var codes []string
	for _, a := range pending {
		if a == nil {
			continue
		}
		code := a.Stop.Code()
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}
