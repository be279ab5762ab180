// Package transit implements the wire protocols of the supported tracking
// services.
package transit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/randytsao24/busalert/internal/livetimes"
	"github.com/randytsao24/busalert/internal/tracker"
)

// EdinburghMaxStops is how many stops one getBusTimes call accepts.
const EdinburghMaxStops = 5

// Edinburgh speaks the Edinburgh bus tracker JSON API, which can answer for
// several stops in one call.
type Edinburgh struct {
	baseURL  string
	apiKey   string
	maxStops int
	now      func() time.Time
}

// NewEdinburgh creates the protocol. maxStops of zero uses EdinburghMaxStops.
func NewEdinburgh(baseURL, apiKey string, maxStops int) *Edinburgh {
	if maxStops <= 0 {
		maxStops = EdinburghMaxStops
	}
	return &Edinburgh{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		maxStops: maxStops,
		now:      time.Now,
	}
}

func (e *Edinburgh) Name() string { return "edinburgh" }

func (e *Edinburgh) MaxStopsPerCall() int { return e.maxStops }

func (e *Edinburgh) NewHTTPRequest(ctx context.Context, q tracker.Query) (*http.Request, error) {
	if len(q.StopCodes) > e.maxStops {
		return nil, fmt.Errorf("edinburgh tracker accepts at most %d stops, got %d", e.maxStops, len(q.StopCodes))
	}

	params := url.Values{}
	params.Set("key", e.apiKey)
	params.Set("nb", strconv.Itoa(q.Departures))
	for i, code := range q.StopCodes {
		params.Set(fmt.Sprintf("stopId%d", i+1), code)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/getBusTimes?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (e *Edinburgh) Decode(body []byte, q tracker.Query) (*livetimes.RawPayload, error) {
	var resp edinburghResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if resp.Faultcode != "" {
		return nil, fmt.Errorf("tracker fault %s: %s", resp.Faultcode, resp.Faultstring)
	}

	now := e.now()
	raw := &livetimes.RawPayload{
		GlobalDisruption:     resp.GlobalDisruption,
		DeparturesPerService: q.Departures,
	}

	// One entry per stop and service; regroup by stop keeping first-seen order.
	index := make(map[string]int)
	for _, bt := range resp.BusTimes {
		i, ok := index[bt.StopID]
		if !ok {
			i = len(raw.Stops)
			index[bt.StopID] = i
			raw.Stops = append(raw.Stops, livetimes.RawStop{Code: bt.StopID, Name: bt.StopName})
		}
		stop := &raw.Stops[i]
		stop.Disrupted = stop.Disrupted || bt.BusStopDisruption

		// An unreadable colour leaves the service unassigned.
		colour, _ := parseHexColour(bt.Colour)

		for _, td := range bt.TimeDatas {
			stop.Departures = append(stop.Departures, livetimes.RawDeparture{
				Service:            bt.MnemoService,
				ServiceDisplayName: bt.NameService,
				Destination:        firstNonEmpty(td.NameDest, td.Terminus),
				Minutes:            td.Minutes,
				Time:               now.Add(time.Duration(td.Minutes) * time.Minute),
				Colour:             colour,
				Estimated:          !strings.Contains(td.Reliability, "T"),
				Diverted:           bt.ServiceDiversion || strings.Contains(td.Reliability, "V"),
			})
		}
	}
	return raw, nil
}

// parseHexColour reads "#RRGGBB" into opaque ARGB. Empty input is no colour.
func parseHexColour(s string) (*uint32, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return nil, nil
	}
	if len(s) != 6 {
		return nil, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	c := uint32(v) | 0xFF000000
	return &c, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type edinburghResponse struct {
	Faultcode        string          `json:"faultcode"`
	Faultstring      string          `json:"faultstring"`
	GlobalDisruption bool            `json:"globalDisruption"`
	BusTimes         []edinburghTime `json:"busTimes"`
}

type edinburghTime struct {
	OperatorID        string `json:"operatorId"`
	StopID            string `json:"stopId"`
	StopName          string `json:"stopName"`
	RefService        string `json:"refService"`
	MnemoService      string `json:"mnemoService"`
	NameService       string `json:"nameService"`
	Colour            string `json:"colour"`
	BusStopDisruption bool   `json:"busStopDisruption"`
	ServiceDiversion  bool   `json:"serviceDiversion"`
	TimeDatas         []struct {
		Minutes     int    `json:"minutes"`
		Time        string `json:"time"`
		NameDest    string `json:"nameDest"`
		Terminus    string `json:"terminus"`
		Reliability string `json:"reliability"`
		Type        string `json:"type"`
	} `json:"timeDatas"`
}
