// Package alerts models arrival alerts and decides, from a live times
// snapshot, which of them are satisfied.
package alerts

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/randytsao24/busalert/internal/livetimes"
	"github.com/randytsao24/busalert/internal/rules"
)

var (
	// ErrNoServices is returned when an alert names no usable service and
	// was not created with AnyService.
	ErrNoServices = errors.New("alert has no services")
	// ErrInvalidTrigger is returned for a negative time trigger.
	ErrInvalidTrigger = errors.New("invalid time trigger")
)

// ServiceSet is the set of services an alert watches, or the "any service"
// sentinel.
type ServiceSet struct {
	any   bool
	names []string
}

// AnyService matches every service.
func AnyService() ServiceSet { return ServiceSet{any: true} }

// Services builds a set from already normalized names. Blanks and duplicates
// are dropped.
func Services(names ...string) ServiceSet {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return ServiceSet{names: out}
}

// IsAny reports whether the set is the any-service sentinel.
func (s ServiceSet) IsAny() bool { return s.any }

// Names returns the service names, nil for the sentinel.
func (s ServiceSet) Names() []string { return slices.Clone(s.names) }

// IsEmpty reports whether the set matches nothing.
func (s ServiceSet) IsEmpty() bool { return !s.any && len(s.names) == 0 }

// Contains reports whether service is in the set.
func (s ServiceSet) Contains(service string) bool {
	return s.any || slices.Contains(s.names, service)
}

func (s ServiceSet) String() string {
	if s.any {
		return "*"
	}
	return strings.Join(s.names, ",")
}

// ArrivalAlertRequest asks to be told when one of Services is at most
// TimeTrigger minutes away from Stop.
type ArrivalAlertRequest struct {
	ID          uuid.UUID
	Stop        livetimes.StopIdentifier
	Services    ServiceSet
	TimeTrigger int
	CreatedAt   time.Time
}

// NewArrivalAlertRequest validates and normalizes an alert. Service names
// pass through r so they match what the mapper produces.
func NewArrivalAlertRequest(r rules.Rules, stopCode string, services ServiceSet, timeTrigger int) (*ArrivalAlertRequest, error) {
	stop, err := livetimes.NewStopIdentifier(stopCode)
	if err != nil {
		return nil, err
	}
	if timeTrigger < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTrigger, timeTrigger)
	}

	if !services.IsAny() {
		names := services.Names()
		if r != nil {
			for i, n := range names {
				names[i] = r.NormalizeServiceName(n)
			}
		}
		services = Services(names...)
		if services.IsEmpty() {
			return nil, ErrNoServices
		}
	}

	return &ArrivalAlertRequest{
		ID:          uuid.New(),
		Stop:        stop,
		Services:    services,
		TimeTrigger: timeTrigger,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ParseServices reads the storage form produced by ServiceSet.String.
func ParseServices(s string) ServiceSet {
	s = strings.TrimSpace(s)
	if s == "*" {
		return AnyService()
	}
	return Services(strings.Split(s, ",")...)
}
