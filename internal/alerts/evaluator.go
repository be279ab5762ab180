package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/randytsao24/busalert/internal/livetimes"
)

// Evaluate returns the pending alerts that snapshot satisfies, in pending
// order. It has no side effects and keeps no reference to its arguments.
func Evaluate(snapshot *livetimes.LiveTimes, pending []*ArrivalAlertRequest) []*ArrivalAlertRequest {
	if snapshot == nil {
		return nil
	}

	var satisfied []*ArrivalAlertRequest
	seen := make(map[*ArrivalAlertRequest]bool)
	for _, a := range pending {
		if a == nil || seen[a] {
			continue
		}
		if _, ok := FirstMatch(snapshot, a); ok {
			seen[a] = true
			satisfied = append(satisfied, a)
		}
	}
	return satisfied
}

// FirstMatch returns the earliest departure that satisfies alert. A stop
// missing from snapshot never matches; disruption flags are ignored.
func FirstMatch(snapshot *livetimes.LiveTimes, alert *ArrivalAlertRequest) (livetimes.Departure, bool) {
	if snapshot == nil || alert == nil {
		return livetimes.Departure{}, false
	}
	stop, ok := snapshot.Stop(alert.Stop.Code())
	if !ok {
		return livetimes.Departure{}, false
	}

	var (
		best  livetimes.Departure
		found bool
	)
	for _, d := range stop.Departures {
		if d.ETA > alert.TimeTrigger || !alert.Services.Contains(d.Service.Name) {
			continue
		}
		if !found || d.ETA < best.ETA {
			best, found = d, true
		}
	}
	return best, found
}

// Store is the alert persistence collaborator.
type Store interface {
	PendingAlerts(ctx context.Context) ([]*ArrivalAlertRequest, error)
	AddAlert(ctx context.Context, alert *ArrivalAlertRequest) error
	RemoveAlerts(ctx context.Context, ids ...uuid.UUID) error
}

// Notification tells a user that an alert fired.
type Notification struct {
	Alert      *ArrivalAlertRequest
	StopName   string
	Departure  livetimes.Departure
	ReceivedAt time.Time
}

// Notifier delivers notifications to users.
type Notifier interface {
	Notify(ctx context.Context, notifications []Notification) error
}
