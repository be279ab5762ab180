// Package rules holds the per-authority business rules applied to service
// identifiers: name correction, night service detection and colour overrides.
package rules

import (
	"fmt"
	"maps"
	"strings"
)

// DefaultNightColour is the colour given to night services without one.
const DefaultNightColour uint32 = 0xFF000000

// Rules is the capability set one transit authority provides. An
// implementation is chosen once at configuration time.
type Rules interface {
	// Name is the authority identifier, e.g. "edinburgh".
	Name() string
	// NormalizeServiceName corrects malformed or legacy identifiers.
	NormalizeServiceName(name string) string
	// IsNightService reports whether name denotes a night service.
	IsNightService(name string) bool
	// OverrideServiceColours fills colours for the requested services that
	// are missing from current. A nil services slice means the query was not
	// constrained and current is returned unchanged. The result is nil when
	// empty.
	OverrideServiceColours(services []string, current map[string]uint32) map[string]uint32
}

// Option customizes an authority's built-in rules.
type Option func(*options)

type options struct {
	renames     map[string]string
	nightColour uint32
}

// WithRenames adds service renames on top of the authority's built-ins.
// Keys are matched after trimming and upper-casing.
func WithRenames(renames map[string]string) Option {
	return func(o *options) {
		for from, to := range renames {
			o.renames[canonical(from)] = strings.TrimSpace(to)
		}
	}
}

// WithNightColour sets the colour assigned to uncoloured night services.
func WithNightColour(colour uint32) Option {
	return func(o *options) { o.nightColour = colour }
}

// ForAuthority returns the rules for the named authority.
func ForAuthority(name string, opts ...Option) (Rules, error) {
	o := &options{renames: map[string]string{}, nightColour: DefaultNightColour}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "edinburgh":
		return newEdinburgh(o, opts), nil
	case "newyork", "nyc":
		return newNewYork(o, opts), nil
	default:
		return nil, fmt.Errorf("unknown authority %q", name)
	}
}

func canonical(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// renamer rewrites exact identifiers.
type renamer map[string]string

func (r renamer) rename(name string) string {
	if to, ok := r[name]; ok {
		return to
	}
	return name
}

// fillColours copies current and adds a colour from pick for every requested
// service that has none. Blank service names are ignored.
func fillColours(services []string, current map[string]uint32, pick func(string) (uint32, bool)) map[string]uint32 {
	if services == nil {
		if len(current) == 0 {
			return nil
		}
		return current
	}

	out := maps.Clone(current)
	if out == nil {
		out = make(map[string]uint32)
	}
	for _, s := range services {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if _, ok := out[s]; ok {
			continue
		}
		if colour, ok := pick(s); ok {
			out[s] = colour
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
