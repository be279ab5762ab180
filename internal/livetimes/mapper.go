package livetimes

import (
	"cmp"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/randytsao24/busalert/internal/rules"
)

// RawPayload is an endpoint response decoded from its wire format but not yet
// normalized.
type RawPayload struct {
	Stops            []RawStop
	GlobalDisruption bool
	// DeparturesPerService keeps at most this many departures per service
	// and stop. Zero keeps everything.
	DeparturesPerService int
}

// RawStop is one stop as reported by the endpoint.
type RawStop struct {
	Code       string
	Name       string
	Disrupted  bool
	Departures []RawDeparture
}

// RawDeparture is one departure as reported by the endpoint.
type RawDeparture struct {
	Service            string
	ServiceDisplayName string
	Destination        string
	Minutes            int
	Time               time.Time
	Colour             *uint32 // colour supplied by the endpoint, if any
	Estimated          bool
	Diverted           bool
}

// Mapper converts raw payloads into LiveTimes using one authority's rules.
type Mapper struct {
	rules rules.Rules
	now   func() time.Time
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithClock overrides the clock used to stamp receive times.
func WithClock(now func() time.Time) MapperOption {
	return func(m *Mapper) { m.now = now }
}

// NewMapper creates a mapper for the given rules.
func NewMapper(r rules.Rules, opts ...MapperOption) *Mapper {
	m := &Mapper{rules: r, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rules returns the authority rules the mapper applies.
func (m *Mapper) Rules() rules.Rules { return m.rules }

// EmptyLiveTimes returns a snapshot with no stops and no disruption.
func (m *Mapper) EmptyLiveTimes() *LiveTimes {
	return New(nil, m.now(), false)
}

// MapToLiveTimes normalizes raw into a LiveTimes snapshot. Stops with
// invalid codes are dropped.
func (m *Mapper) MapToLiveTimes(raw *RawPayload) *LiveTimes {
	if raw == nil {
		return m.EmptyLiveTimes()
	}

	// Names are corrected before anything else keys off them.
	names := make([][]string, len(raw.Stops))
	requested := make([]string, 0)
	supplied := make(map[string]uint32)
	seen := make(map[string]bool)
	for i, rs := range raw.Stops {
		names[i] = make([]string, len(rs.Departures))
		for j, rd := range rs.Departures {
			name := m.rules.NormalizeServiceName(rd.Service)
			names[i][j] = name
			if name == "" {
				continue
			}
			if !seen[name] {
				seen[name] = true
				requested = append(requested, name)
			}
			if rd.Colour != nil {
				if _, ok := supplied[name]; !ok {
					supplied[name] = *rd.Colour
				}
			}
		}
	}
	colours := m.rules.OverrideServiceColours(requested, supplied)

	collator := collate.New(language.BritishEnglish, collate.Numeric)
	stops := make([]Stop, 0, len(raw.Stops))
	for i, rs := range raw.Stops {
		id, err := NewStopIdentifier(rs.Code)
		if err != nil {
			continue
		}

		departures := make([]Departure, 0, len(rs.Departures))
		for j, rd := range rs.Departures {
			name := names[i][j]
			if name == "" {
				continue
			}
			svc := Service{
				Name:        name,
				DisplayName: rd.ServiceDisplayName,
				Night:       m.rules.IsNightService(name),
			}
			if rd.Colour != nil {
				c := *rd.Colour
				svc.Colour = &c
			} else if c, ok := colours[name]; ok {
				svc.Colour = &c
			}
			departures = append(departures, Departure{
				Service:     svc,
				Destination: rd.Destination,
				ETA:         max(rd.Minutes, 0),
				Time:        rd.Time,
				Estimated:   rd.Estimated,
				Diverted:    rd.Diverted,
			})
		}

		sortDepartures(collator, departures)
		if raw.DeparturesPerService > 0 {
			departures = limitPerService(departures, raw.DeparturesPerService)
		}

		stops = append(stops, Stop{
			ID:         id,
			Name:       rs.Name,
			Departures: departures,
			Disrupted:  rs.Disrupted,
		})
	}

	return New(stops, m.now(), raw.GlobalDisruption)
}

// sortDepartures orders by ETA, then by service name so "2" precedes "10".
func sortDepartures(collator *collate.Collator, departures []Departure) {
	slices.SortStableFunc(departures, func(a, b Departure) int {
		if c := cmp.Compare(a.ETA, b.ETA); c != 0 {
			return c
		}
		return collator.CompareString(a.Service.Name, b.Service.Name)
	})
}

func limitPerService(departures []Departure, n int) []Departure {
	counts := make(map[string]int)
	out := departures[:0]
	for _, d := range departures {
		if counts[d.Service.Name] >= n {
			continue
		}
		counts[d.Service.Name]++
		out = append(out, d)
	}
	return out
}
