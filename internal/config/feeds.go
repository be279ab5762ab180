package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FeedsConfig is the contents of the feeds file.
type FeedsConfig struct {
	Feeds []Feed `yaml:"feeds" validate:"required,min=1,dive"`
}

// Feed describes one tracking service and how its data is interpreted.
type Feed struct {
	Name            string            `yaml:"name" validate:"required"`
	Authority       string            `yaml:"authority" validate:"required"`
	Protocol        string            `yaml:"protocol" validate:"required,oneof=edinburgh siri gtfsrt"`
	URL             string            `yaml:"url" validate:"required,url"`
	APIKey          string            `yaml:"apiKey"`
	Headers         map[string]string `yaml:"headers"`
	MaxStopsPerCall int               `yaml:"maxStopsPerCall" validate:"gte=0"`
	Renames         map[string]string `yaml:"renames"`
	NightColour     string            `yaml:"nightColour" validate:"omitempty,hexcolor"`
}

// NightColourARGB returns the configured night colour as opaque ARGB.
func (f Feed) NightColourARGB() (uint32, bool, error) {
	s := strings.TrimPrefix(strings.TrimSpace(f.NightColour), "#")
	if s == "" {
		return 0, false, nil
	}
	if len(s) != 6 {
		return 0, false, fmt.Errorf("feed %s: nightColour must be #RRGGBB", f.Name)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false, fmt.Errorf("feed %s: nightColour: %w", f.Name, err)
	}
	return uint32(v) | 0xFF000000, true, nil
}

// LoadFeeds reads and validates the feed profiles at path.
func LoadFeeds(path string) (*FeedsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading feeds file: %w", err)
	}
	return ParseFeeds(data)
}

// ParseFeeds decodes and validates feed profiles from YAML.
func ParseFeeds(data []byte) (*FeedsConfig, error) {
	var cfg FeedsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing feeds file: %w", err)
	}
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid feeds file: %w", err)
	}
	seen := make(map[string]bool, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		if seen[f.Name] {
			return nil, fmt.Errorf("invalid feeds file: duplicate feed %q", f.Name)
		}
		seen[f.Name] = true
		if _, _, err := f.NightColourARGB(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Select chooses a feed by name; an empty name means the first feed.
func (c *FeedsConfig) Select(name string) (Feed, error) {
	if len(c.Feeds) == 0 {
		return Feed{}, errors.New("no feeds configured")
	}
	if name == "" {
		return c.Feeds[0], nil
	}
	for _, f := range c.Feeds {
		if f.Name == name {
			return f, nil
		}
	}
	return Feed{}, fmt.Errorf("unknown feed %q", name)
}
