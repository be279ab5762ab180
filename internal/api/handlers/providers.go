package handlers

import (
	"context"

	"github.com/randytsao24/busalert/internal/checker"
	"github.com/randytsao24/busalert/internal/livetimes"
)

// LiveTimesProvider abstracts the live times source for testability.
type LiveTimesProvider interface {
	GetLiveTimes(ctx context.Context, stopCode string, departures int) (*livetimes.LiveTimes, error)
	GetLiveTimesForStops(ctx context.Context, stopCodes []string, departures int) (*livetimes.LiveTimes, error)
}

// AlertChecker runs one alert check cycle on demand.
type AlertChecker interface {
	Check(ctx context.Context) (checker.Result, error)
}
