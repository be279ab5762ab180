// Package livetimes defines the city-agnostic live departure model and the
// mapper that builds it from decoded endpoint payloads.
package livetimes

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const maxStopCodeLength = 32

// ErrInvalidStopCode is returned when a stop code fails validation.
var ErrInvalidStopCode = errors.New("invalid stop code")

// StopIdentifier is a validated transit authority stop code (e.g. NaPTAN).
type StopIdentifier struct {
	code string
}

// NewStopIdentifier validates code and returns its identifier.
func NewStopIdentifier(code string) (StopIdentifier, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return StopIdentifier{}, fmt.Errorf("%w: empty", ErrInvalidStopCode)
	}
	if len(code) > maxStopCodeLength {
		return StopIdentifier{}, fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidStopCode, code, maxStopCodeLength)
	}
	for _, r := range code {
		if !isStopCodeRune(r) {
			return StopIdentifier{}, fmt.Errorf("%w: %q contains %q", ErrInvalidStopCode, code, r)
		}
	}
	return StopIdentifier{code: code}, nil
}

// MustStopIdentifier is like NewStopIdentifier but panics on invalid input.
// Intended for constants and tests.
func MustStopIdentifier(code string) StopIdentifier {
	id, err := NewStopIdentifier(code)
	if err != nil {
		panic(err)
	}
	return id
}

func isStopCodeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}

// Code returns the raw stop code.
func (s StopIdentifier) Code() string { return s.code }

// IsZero reports whether s was never assigned a code.
func (s StopIdentifier) IsZero() bool { return s.code == "" }

func (s StopIdentifier) String() string { return s.code }

// Service describes a transit service such as a bus or tram line.
type Service struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name,omitempty"`
	Colour      *uint32 `json:"colour,omitempty"` // packed ARGB, nil when unassigned
	Night       bool    `json:"night"`
}

// HasColour reports whether a colour has been assigned.
func (s Service) HasColour() bool { return s.Colour != nil }

// Departure is one upcoming arrival of a service at a stop.
type Departure struct {
	Service     Service   `json:"service"`
	Destination string    `json:"destination"`
	ETA         int       `json:"eta_minutes"`
	Time        time.Time `json:"time"`
	Estimated   bool      `json:"estimated"`
	Diverted    bool      `json:"diverted,omitempty"`
}

// Stop is the live view of a single stop.
type Stop struct {
	ID         StopIdentifier `json:"-"`
	Name       string         `json:"name,omitempty"`
	Departures []Departure    `json:"departures"`
	Disrupted  bool           `json:"disrupted"`
}

// Code is shorthand for s.ID.Code().
func (s Stop) Code() string { return s.ID.Code() }

// LiveTimes is an immutable snapshot of live departures for one or more
// stops. A stop code missing from the snapshot means the endpoint returned
// no data for it.
type LiveTimes struct {
	stops            map[string]Stop
	receiveTime      time.Time
	globalDisruption bool
}

// New builds a snapshot. Stops with a zero identifier are skipped and a later
// stop with the same code replaces an earlier one.
func New(stops []Stop, receiveTime time.Time, globalDisruption bool) *LiveTimes {
	m := make(map[string]Stop, len(stops))
	for _, s := range stops {
		if s.ID.IsZero() {
			continue
		}
		s.Departures = slices.Clone(s.Departures)
		m[s.ID.Code()] = s
	}
	return &LiveTimes{
		stops:            m,
		receiveTime:      receiveTime,
		globalDisruption: globalDisruption,
	}
}

// Merge combines partial snapshots into one stamped with receiveTime.
func Merge(receiveTime time.Time, parts ...*LiveTimes) *LiveTimes {
	var stops []Stop
	disrupted := false
	for _, p := range parts {
		if p == nil {
			continue
		}
		disrupted = disrupted || p.globalDisruption
		for _, code := range p.StopCodes() {
			stops = append(stops, p.stops[code])
		}
	}
	return New(stops, receiveTime, disrupted)
}

// Stop returns the stop with the given code.
func (l *LiveTimes) Stop(code string) (Stop, bool) {
	s, ok := l.stops[code]
	if !ok {
		return Stop{}, false
	}
	s.Departures = slices.Clone(s.Departures)
	return s, true
}

// StopCodes returns the stop codes in the snapshot, sorted.
func (l *LiveTimes) StopCodes() []string {
	codes := make([]string, 0, len(l.stops))
	for code := range l.stops {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// Stops returns every stop sorted by code.
func (l *LiveTimes) Stops() []Stop {
	out := make([]Stop, 0, len(l.stops))
	for _, code := range l.StopCodes() {
		s, _ := l.Stop(code)
		out = append(out, s)
	}
	return out
}

func (l *LiveTimes) Len() int { return len(l.stops) }

func (l *LiveTimes) IsEmpty() bool { return len(l.stops) == 0 }

// ReceiveTime is the local instant the snapshot was built.
func (l *LiveTimes) ReceiveTime() time.Time { return l.receiveTime }

func (l *LiveTimes) HasGlobalDisruption() bool { return l.globalDisruption }
