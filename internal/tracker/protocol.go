// Package tracker retrieves live times from a remote tracking service. It owns
// request strategy, cancellation and the mapping of HTTP and I/O failures to
// the closed Error set.
package tracker

import (
	"context"
	"net/http"

	"github.com/randytsao24/busalert/internal/livetimes"
)

// Query is what a single network call asks the endpoint for.
type Query struct {
	StopCodes  []string
	Departures int // per service
}

// Protocol is one authority's wire protocol.
type Protocol interface {
	// Name identifies the protocol in logs and metrics.
	Name() string
	// MaxStopsPerCall is how many stops one call may carry. Zero means the
	// protocol has no limit.
	MaxStopsPerCall() int
	// NewHTTPRequest builds the call for q.
	NewHTTPRequest(ctx context.Context, q Query) (*http.Request, error)
	// Decode parses a non-empty successful response body.
	Decode(body []byte, q Query) (*livetimes.RawPayload, error)
}
