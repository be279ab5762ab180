package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/randytsao24/busalert/internal/livetimes"
)

const defaultHTTPTimeout = 10 * time.Second

// Observer receives one report per endpoint call.
type Observer interface {
	ObserveTrackerRequest(protocol, outcome string, d time.Duration)
}

// Endpoint is the entry point for retrieving live times.
type Endpoint struct {
	client   *http.Client
	protocol Protocol
	mapper   *livetimes.Mapper
	observer Observer
	logger   *slog.Logger
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Endpoint) { e.client = c }
}

// WithObserver reports calls to o.
func WithObserver(o Observer) Option {
	return func(e *Endpoint) { e.observer = o }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Endpoint) { e.logger = l }
}

// NewEndpoint creates an endpoint speaking p and normalizing with m.
func NewEndpoint(p Protocol, m *livetimes.Mapper, opts ...Option) *Endpoint {
	e := &Endpoint{
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		protocol: p,
		mapper:   m,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Protocol returns the wire protocol in use.
func (e *Endpoint) Protocol() Protocol { return e.protocol }

// GetLiveTimes returns live times for a single stop.
func (e *Endpoint) GetLiveTimes(ctx context.Context, stopCode string, departures int) (*livetimes.LiveTimes, error) {
	return e.GetLiveTimesForStops(ctx, []string{stopCode}, departures)
}

// GetLiveTimesForStops returns live times for every stop in stopCodes. Either
// every underlying call succeeds and the results are merged, or the first
// failure is returned and nothing else.
func (e *Endpoint) GetLiveTimesForStops(ctx context.Context, stopCodes []string, departures int) (*livetimes.LiveTimes, error) {
	req, err := e.NewRequest(stopCodes, departures)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	lt, err := req.PerformRequest(ctx)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = Kind(err)
	}
	if e.observer != nil {
		e.observer.ObserveTrackerRequest(e.protocol.Name(), outcome, elapsed)
	}
	e.logger.Debug("live times request",
		"protocol", e.protocol.Name(),
		"stops", len(stopCodes),
		"outcome", outcome,
		"duration", elapsed.String(),
	)
	return lt, err
}

// NewRequest validates the arguments and builds the request strategy the
// protocol calls for, without performing it.
func (e *Endpoint) NewRequest(stopCodes []string, departures int) (Request, error) {
	if departures <= 0 {
		return nil, fmt.Errorf("%w: departures must be positive, got %d", ErrInvalidRequest, departures)
	}
	codes, err := uniqueStopCodes(stopCodes)
	if err != nil {
		return nil, err
	}

	batches := batch(codes, e.protocol.MaxStopsPerCall())
	if len(batches) == 1 {
		return e.single(batches[0], departures), nil
	}

	parts := make([]*singleRequest, len(batches))
	for i, b := range batches {
		parts[i] = e.single(b, departures)
	}
	return newMultiRequest(parts), nil
}

func (e *Endpoint) single(codes []string, departures int) *singleRequest {
	return newSingleRequest(e.client, e.protocol, e.mapper, Query{StopCodes: codes, Departures: departures})
}

func uniqueStopCodes(stopCodes []string) ([]string, error) {
	if len(stopCodes) == 0 {
		return nil, fmt.Errorf("%w: no stops requested", ErrInvalidRequest)
	}
	seen := make(map[string]bool, len(stopCodes))
	codes := make([]string, 0, len(stopCodes))
	for _, c := range stopCodes {
		id, err := livetimes.NewStopIdentifier(c)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		if seen[id.Code()] {
			continue
		}
		seen[id.Code()] = true
		codes = append(codes, id.Code())
	}
	return codes, nil
}

// batch splits codes into groups of at most size. A size of zero or less
// keeps everything together.
func batch(codes []string, size int) [][]string {
	if size <= 0 || len(codes) <= size {
		return [][]string{codes}
	}
	var out [][]string
	for len(codes) > 0 {
		n := min(size, len(codes))
		out = append(out, codes[:n:n])
		codes = codes[n:]
	}
	return out
}
