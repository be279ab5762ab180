package transit

import (
	"fmt"

	"github.com/randytsao24/busalert/internal/config"
	"github.com/randytsao24/busalert/internal/livetimes"
	"github.com/randytsao24/busalert/internal/rules"
	"github.com/randytsao24/busalert/internal/tracker"
)

// NewProtocol builds the wire protocol a feed profile names.
func NewProtocol(feed config.Feed) (tracker.Protocol, error) {
	switch feed.Protocol {
	case "edinburgh":
		return NewEdinburgh(feed.URL, feed.APIKey, feed.MaxStopsPerCall), nil
	case "siri":
		return NewSIRI(feed.URL, feed.APIKey), nil
	case "gtfsrt":
		headers := feed.Headers
		if feed.APIKey != "" {
			headers = make(map[string]string, len(feed.Headers)+1)
			for k, v := range feed.Headers {
				headers[k] = v
			}
			headers["x-api-key"] = feed.APIKey
		}
		return NewGTFSRT(feed.URL, headers), nil
	}
	return nil, fmt.Errorf("unknown protocol %q", feed.Protocol)
}

// NewRules builds the authority rules for a feed profile.
func NewRules(feed config.Feed) (rules.Rules, error) {
	var opts []rules.Option
	if len(feed.Renames) > 0 {
		opts = append(opts, rules.WithRenames(feed.Renames))
	}
	colour, ok, err := feed.NightColourARGB()
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, rules.WithNightColour(colour))
	}
	return rules.ForAuthority(feed.Authority, opts...)
}

// NewEndpoint wires the protocol and rules of feed into a tracker endpoint.
func NewEndpoint(feed config.Feed, opts ...tracker.Option) (*tracker.Endpoint, rules.Rules, error) {
	p, err := NewProtocol(feed)
	if err != nil {
		return nil, nil, fmt.Errorf("feed %s: %w", feed.Name, err)
	}
	r, err := NewRules(feed)
	if err != nil {
		return nil, nil, fmt.Errorf("feed %s: %w", feed.Name, err)
	}
	return tracker.NewEndpoint(p, livetimes.NewMapper(r), opts...), r, nil
}
