package rules

import "strings"

var newYorkAgencyPrefixes = []string{"MTA NYCT_", "MTABC_", "MTA_"}

// Trunk line bullet colours.
var newYorkLineColours = map[string]uint32{
	"A": 0xFF0039A6, "C": 0xFF0039A6, "E": 0xFF0039A6,
	"B": 0xFFFF6319, "D": 0xFFFF6319, "F": 0xFFFF6319, "M": 0xFFFF6319,
	"G": 0xFF6CBE45,
	"J": 0xFF996633, "Z": 0xFF996633,
	"L": 0xFFA7A9AC,
	"N": 0xFFFCCC0A, "Q": 0xFFFCCC0A, "R": 0xFFFCCC0A, "W": 0xFFFCCC0A,
	"1": 0xFFEE352E, "2": 0xFFEE352E, "3": 0xFFEE352E,
	"4": 0xFF00933C, "5": 0xFF00933C, "6": 0xFF00933C,
	"7": 0xFFB933AD,
	"S": 0xFF808183,
}

type newYork struct {
	renames renamer
}

func newNewYork(o *options, opts []Option) *newYork {
	for _, opt := range opts {
		opt(o)
	}
	return &newYork{renames: o.renames}
}

func (n *newYork) Name() string { return "newyork" }

func (n *newYork) NormalizeServiceName(name string) string {
	name = canonical(name)
	for _, prefix := range newYorkAgencyPrefixes {
		if strings.HasPrefix(name, prefix) {
			name = strings.TrimPrefix(name, prefix)
			break
		}
	}
	if base, ok := strings.CutSuffix(name, "+"); ok && base != "" {
		name = base + "-SBS"
	}
	return n.renames.rename(name)
}

// New York does not brand night services by name.
func (n *newYork) IsNightService(string) bool { return false }

func (n *newYork) OverrideServiceColours(services []string, current map[string]uint32) map[string]uint32 {
	return fillColours(services, current, func(service string) (uint32, bool) {
		colour, ok := newYorkLineColours[strings.TrimSuffix(service, "X")]
		return colour, ok
	})
}
