package livetimes

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randytsao24/busalert/internal/rules"
)

var fixedNow = time.Date(2026, 3, 14, 22, 30, 0, 0, time.UTC)

func newTestMapper(t *testing.T, authority string) *Mapper {
	t.Helper()
	r, err := rules.ForAuthority(authority)
	require.NoError(t, err)
	return NewMapper(r, WithClock(func() time.Time { return fixedNow }))
}

func colour(c uint32) *uint32 { return &c }

func serviceNames(departures []Departure) []string {
	names := make([]string, len(departures))
	for i, d := range departures {
		names[i] = d.Service.Name
	}
	return names
}

func TestNewStopIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"naptan", "36232545", "36232545", false},
		{"trimmed", " 6200206520 ", "6200206520", false},
		{"with underscore", "MTA_305423", "MTA_305423", false},
		{"empty", "", "", true},
		{"whitespace", "   ", "", true},
		{"space inside", "12 34", "", true},
		{"too long", strings.Repeat("1", 33), "", true},
		{"punctuation", "123;drop", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewStopIdentifier(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStopCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.Code())
		})
	}

	assert.Equal(t, MustStopIdentifier("123"), MustStopIdentifier(" 123"))
}

func TestEmptyLiveTimes(t *testing.T) {
	m := newTestMapper(t, "edinburgh")

	lt := m.EmptyLiveTimes()
	assert.True(t, lt.IsEmpty())
	assert.Equal(t, 0, lt.Len())
	assert.False(t, lt.HasGlobalDisruption())
	assert.Equal(t, fixedNow, lt.ReceiveTime())
	assert.True(t, m.MapToLiveTimes(nil).IsEmpty())
}

func TestMapToLiveTimesRenamesBeforeRules(t *testing.T) {
	m := newTestMapper(t, "edinburgh")

	lt := m.MapToLiveTimes(&RawPayload{
		Stops: []RawStop{{
			Code: "36232545",
			Departures: []RawDeparture{
				{Service: "50", Destination: "Airport", Minutes: 4},
			},
		}},
	})

	stop, ok := lt.Stop("36232545")
	require.True(t, ok)
	require.Len(t, stop.Departures, 1)
	assert.Equal(t, "TRAM", stop.Departures[0].Service.Name)
	assert.False(t, stop.Departures[0].Service.Night)
}

func TestMapToLiveTimesColours(t *testing.T) {
	m := newTestMapper(t, "edinburgh")

	lt := m.MapToLiveTimes(&RawPayload{
		Stops: []RawStop{{
			Code: "36232545",
			Departures: []RawDeparture{
				{Service: "N26", Minutes: 12},
				{Service: "n3", Minutes: 3, Colour: colour(0xFF112233)},
				{Service: "26", Minutes: 1},
			},
		}},
	})

	stop, ok := lt.Stop("36232545")
	require.True(t, ok)
	require.Equal(t, []string{"26", "N3", "N26"}, serviceNames(stop.Departures))

	assert.Nil(t, stop.Departures[0].Service.Colour)
	require.NotNil(t, stop.Departures[1].Service.Colour)
	assert.Equal(t, uint32(0xFF112233), *stop.Departures[1].Service.Colour)
	assert.True(t, stop.Departures[1].Service.Night)
	require.NotNil(t, stop.Departures[2].Service.Colour)
	assert.Equal(t, rules.DefaultNightColour, *stop.Departures[2].Service.Colour)
}

func TestMapToLiveTimesOrdering(t *testing.T) {
	m := newTestMapper(t, "edinburgh")

	lt := m.MapToLiveTimes(&RawPayload{
		Stops: []RawStop{{
			Code: "1",
			Departures: []RawDeparture{
				{Service: "10", Minutes: 5},
				{Service: "2", Minutes: 5},
				{Service: "1", Minutes: 7},
				{Service: "X5", Minutes: 0},
				{Service: "22", Minutes: -3},
			},
		}},
	})

	stop, _ := lt.Stop("1")
	assert.Equal(t, []string{"22", "X5", "2", "10", "1"}, serviceNames(stop.Departures))
	assert.Equal(t, 0, stop.Departures[0].ETA)
}

func TestMapToLiveTimesLimitsPerService(t *testing.T) {
	m := newTestMapper(t, "edinburgh")

	lt := m.MapToLiveTimes(&RawPayload{
		DeparturesPerService: 2,
		Stops: []RawStop{{
			Code: "1",
			Departures: []RawDeparture{
				{Service: "10", Minutes: 20},
				{Service: "10", Minutes: 2},
				{Service: "10", Minutes: 11},
				{Service: "5", Minutes: 30},
			},
		}},
	})

	stop, _ := lt.Stop("1")
	require.Len(t, stop.Departures, 3)
	assert.Equal(t, []int{2, 11, 30}, []int{stop.Departures[0].ETA, stop.Departures[1].ETA, stop.Departures[2].ETA})
}

func TestMapToLiveTimesStopsAndDisruption(t *testing.T) {
	m := newTestMapper(t, "edinburgh")

	lt := m.MapToLiveTimes(&RawPayload{
		GlobalDisruption: true,
		Stops: []RawStop{
			{Code: "200", Name: "Princes St", Disrupted: true},
			{Code: "bad code"},
			{Code: "100", Departures: []RawDeparture{{Service: "", Minutes: 1}}},
		},
	})

	assert.True(t, lt.HasGlobalDisruption())
	assert.Equal(t, []string{"100", "200"}, lt.StopCodes())

	stop, ok := lt.Stop("200")
	require.True(t, ok)
	assert.True(t, stop.Disrupted)
	assert.Equal(t, "Princes St", stop.Name)

	empty, _ := lt.Stop("100")
	assert.Empty(t, empty.Departures)

	_, ok = lt.Stop("999")
	assert.False(t, ok)
}

func TestServiceJSON(t *testing.T) {
	colour := uint32(0xFF112233)
	b, err := json.Marshal(Service{Name: "22", DisplayName: "Leith", Colour: &colour})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"22","display_name":"Leith","colour":4279312947,"night":false}`, string(b))
}

func TestLiveTimesIsImmutable(t *testing.T) {
	departures := []Departure{{Service: Service{Name: "10"}, ETA: 3}}
	lt := New([]Stop{{ID: MustStopIdentifier("1"), Departures: departures}}, fixedNow, false)

	departures[0].ETA = 99
	stop, _ := lt.Stop("1")
	assert.Equal(t, 3, stop.Departures[0].ETA)

	stop.Departures[0].ETA = 42
	again, _ := lt.Stop("1")
	assert.Equal(t, 3, again.Departures[0].ETA)
}

func TestMerge(t *testing.T) {
	a := New([]Stop{{ID: MustStopIdentifier("1")}}, fixedNow, false)
	b := New([]Stop{{ID: MustStopIdentifier("2")}, {ID: MustStopIdentifier("3")}}, fixedNow, true)

	later := fixedNow.Add(time.Second)
	merged := Merge(later, a, nil, b)

	assert.Equal(t, []string{"1", "2", "3"}, merged.StopCodes())
	assert.True(t, merged.HasGlobalDisruption())
	assert.Equal(t, later, merged.ReceiveTime())

	for _, s := range merged.Stops() {
		assert.Equal(t, s.Code(), s.ID.Code())
	}
}
