package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRules(t *testing.T, name string, opts ...Option) Rules {
	t.Helper()
	r, err := ForAuthority(name, opts...)
	require.NoError(t, err)
	return r
}

func TestForAuthority(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"edinburgh", "edinburgh"},
		{" Edinburgh ", "edinburgh"},
		{"nyc", "newyork"},
		{"newyork", "newyork"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, mustRules(t, tt.input).Name())
		})
	}

	_, err := ForAuthority("atlantis")
	assert.Error(t, err)
}

func TestEdinburghNormalizeServiceName(t *testing.T) {
	r := mustRules(t, "edinburgh")

	tests := []struct {
		input string
		want  string
	}{
		{"50", "TRAM"},
		{" 50 ", "TRAM"},
		{"10", "10"},
		{"n26", "N26"},
		{"x5", "X5"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, r.NormalizeServiceName(tt.input))
		})
	}
}

func TestEdinburghRenameOverrides(t *testing.T) {
	r := mustRules(t, "edinburgh", WithRenames(map[string]string{"x99": "AIRLINK", "50": "T50"}))

	assert.Equal(t, "AIRLINK", r.NormalizeServiceName("X99"))
	assert.Equal(t, "T50", r.NormalizeServiceName("50"))
}

func TestEdinburghIsNightService(t *testing.T) {
	r := mustRules(t, "edinburgh")

	tests := []struct {
		input string
		want  bool
	}{
		{"N123", true},
		{"n3", true},
		{"N26A", true},
		{"123", false},
		{"T50", false},
		{"N", false},
		{"TRAM", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IsNightService(tt.input))
		})
	}
}

func TestEdinburghOverrideServiceColours(t *testing.T) {
	r := mustRules(t, "edinburgh")

	t.Run("fills night service", func(t *testing.T) {
		got := r.OverrideServiceColours([]string{"N10"}, map[string]uint32{})
		assert.Equal(t, map[string]uint32{"N10": 0xFF000000}, got)
	})

	t.Run("keeps existing colour", func(t *testing.T) {
		got := r.OverrideServiceColours([]string{"N10"}, map[string]uint32{"N10": 0xFF112233})
		assert.Equal(t, map[string]uint32{"N10": 0xFF112233}, got)
	})

	t.Run("ignores day services", func(t *testing.T) {
		got := r.OverrideServiceColours([]string{"10", "22"}, nil)
		assert.Nil(t, got)
	})

	t.Run("unconstrained passes through", func(t *testing.T) {
		current := map[string]uint32{"10": 0xFF123456}
		got := r.OverrideServiceColours(nil, current)
		assert.Equal(t, current, got)
		assert.Nil(t, r.OverrideServiceColours(nil, nil))
	})

	t.Run("empty constraint changes nothing", func(t *testing.T) {
		assert.Nil(t, r.OverrideServiceColours([]string{}, nil))
		assert.Nil(t, r.OverrideServiceColours([]string{" "}, nil))
		got := r.OverrideServiceColours([]string{}, map[string]uint32{"N1": 1})
		assert.Equal(t, map[string]uint32{"N1": 1}, got)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		current := map[string]uint32{"10": 1}
		r.OverrideServiceColours([]string{"N1"}, current)
		assert.Len(t, current, 1)
	})

	t.Run("custom night colour", func(t *testing.T) {
		custom := mustRules(t, "edinburgh", WithNightColour(0xFF202020))
		got := custom.OverrideServiceColours([]string{"N3"}, nil)
		assert.Equal(t, map[string]uint32{"N3": 0xFF202020}, got)
	})
}

func TestNewYorkRules(t *testing.T) {
	r := mustRules(t, "nyc")

	assert.Equal(t, "M34-SBS", r.NormalizeServiceName("MTA NYCT_M34+"))
	assert.Equal(t, "Q70", r.NormalizeServiceName("MTABC_Q70"))
	assert.Equal(t, "A", r.NormalizeServiceName("a"))
	assert.False(t, r.IsNightService("N"))

	got := r.OverrideServiceColours([]string{"A", "7X", "M34-SBS"}, map[string]uint32{"A": 1})
	assert.Equal(t, map[string]uint32{"A": 1, "7X": 0xFFB933AD}, got)
}
