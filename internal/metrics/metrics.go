// Package metrics exposes Prometheus metrics for tracker calls, alert checks
// and notification publishing.
package metrics

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry. It satisfies tracker.Observer,
// checker.Observer and publisher.Metrics.
type Collector struct {
	reg *prometheus.Registry

	TrackerRequests *prometheus.CounterVec // protocol, outcome
	TrackerDuration *prometheus.HistogramVec

	AlertsEvaluated prometheus.Counter
	AlertsSatisfied prometheus.Counter
	CheckDuration   prometheus.Histogram

	NotificationsPublished prometheus.Counter
	NotificationErrors     prometheus.Counter
	NATSConnected          prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TrackerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busalert_tracker_requests_total",
			Help: "Tracker calls by protocol and outcome.",
		}, []string{"protocol", "outcome"}),
		TrackerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "busalert_tracker_request_duration_seconds",
			Help:    "Duration of tracker calls.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"protocol"}),
		AlertsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busalert_alerts_evaluated_total",
			Help: "Pending alerts evaluated against live times.",
		}),
		AlertsSatisfied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busalert_alerts_satisfied_total",
			Help: "Alerts whose condition was met.",
		}),
		CheckDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "busalert_check_duration_seconds",
			Help:    "Duration of one alert check cycle.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		NotificationsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busalert_notifications_published_total",
			Help: "Alert notifications published.",
		}),
		NotificationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busalert_notification_errors_total",
			Help: "Alert notifications that failed to publish.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busalert_nats_connected",
			Help: "1 if connected to NATS, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.TrackerRequests, c.TrackerDuration,
		c.AlertsEvaluated, c.AlertsSatisfied, c.CheckDuration,
		c.NotificationsPublished, c.NotificationErrors, c.NATSConnected,
	)
	return c
}

func (c *Collector) ObserveTrackerRequest(protocol, outcome string, d time.Duration) {
	c.TrackerRequests.WithLabelValues(protocol, outcome).Inc()
	c.TrackerDuration.WithLabelValues(protocol).Observe(d.Seconds())
}

func (c *Collector) ObserveCheck(evaluated, satisfied int, d time.Duration) {
	c.AlertsEvaluated.Add(float64(evaluated))
	c.AlertsSatisfied.Add(float64(satisfied))
	c.CheckDuration.Observe(d.Seconds())
}

func (c *Collector) NotificationPublished() { c.NotificationsPublished.Inc() }

func (c *Collector) NotificationFailed() { c.NotificationErrors.Inc() }

func (c *Collector) SetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", addr)
	return srv
}
