package rules

import (
	"maps"
	"regexp"
)

// The tracker reports tram departures under the legacy service number 50.
var edinburghRenames = map[string]string{
	"50": "TRAM",
}

var edinburghNightPattern = regexp.MustCompile(`(?i)^N\d+[A-Z]?$`)

type edinburgh struct {
	renames     renamer
	nightColour uint32
}

func newEdinburgh(o *options, opts []Option) *edinburgh {
	maps.Copy(o.renames, edinburghRenames)
	for _, opt := range opts {
		opt(o)
	}
	return &edinburgh{renames: o.renames, nightColour: o.nightColour}
}

func (e *edinburgh) Name() string { return "edinburgh" }

func (e *edinburgh) NormalizeServiceName(name string) string {
	return e.renames.rename(canonical(name))
}

func (e *edinburgh) IsNightService(name string) bool {
	return edinburghNightPattern.MatchString(name)
}

func (e *edinburgh) OverrideServiceColours(services []string, current map[string]uint32) map[string]uint32 {
	return fillColours(services, current, func(service string) (uint32, bool) {
		if e.IsNightService(service) {
			return e.nightColour, true
		}
		return 0, false
	})
}
