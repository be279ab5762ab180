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

// SIRI speaks SIRI stop monitoring JSON (MTA Bus Time flavour). The API
// answers for one stop per call.
type SIRI struct {
	baseURL string
	apiKey  string
	now     func() time.Time
}

// NewSIRI creates the protocol. baseURL is the stop-monitoring endpoint.
func NewSIRI(baseURL, apiKey string) *SIRI {
	return &SIRI{baseURL: baseURL, apiKey: apiKey, now: time.Now}
}

func (s *SIRI) Name() string { return "siri" }

func (s *SIRI) MaxStopsPerCall() int { return 1 }

func (s *SIRI) NewHTTPRequest(ctx context.Context, q tracker.Query) (*http.Request, error) {
	if len(q.StopCodes) != 1 {
		return nil, fmt.Errorf("siri stop monitoring takes exactly one stop, got %d", len(q.StopCodes))
	}

	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("MonitoringRef", q.StopCodes[0])
	params.Set("MinimumStopVisitsPerLine", strconv.Itoa(q.Departures))
	params.Set("version", "2")

	sep := "?"
	if strings.Contains(s.baseURL, "?") {
		sep = "&"
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+sep+params.Encode(), nil)
}

func (s *SIRI) Decode(body []byte, q tracker.Query) (*livetimes.RawPayload, error) {
	if len(q.StopCodes) != 1 {
		return nil, fmt.Errorf("siri stop monitoring takes exactly one stop, got %d", len(q.StopCodes))
	}

	var result siriResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	stop := livetimes.RawStop{Code: q.StopCodes[0]}
	now := s.now()

	delivery := result.Siri.ServiceDelivery
	for _, sx := range delivery.SituationExchangeDelivery {
		if len(sx.Situations.PtSituationElement) > 0 {
			stop.Disrupted = true
		}
	}

	if len(delivery.StopMonitoringDelivery) > 0 {
		for _, visit := range delivery.StopMonitoringDelivery[0].MonitoredStopVisit {
			journey := visit.MonitoredVehicleJourney

			expected := journey.MonitoredCall.ExpectedArrivalTime
			if expected.IsZero() {
				expected = journey.MonitoredCall.ExpectedDepartureTime
			}
			estimated := !expected.IsZero()
			if expected.IsZero() {
				expected = journey.MonitoredCall.AimedArrivalTime
			}
			// Skip entries with no usable time and buses already gone
			if expected.IsZero() || expected.Before(now) {
				continue
			}

			if stop.Name == "" {
				stop.Name = getFirstString(journey.MonitoredCall.StopPointName)
			}

			stop.Departures = append(stop.Departures, livetimes.RawDeparture{
				Service:     getFirstString(journey.PublishedLineName),
				Destination: getFirstString(journey.DestinationName),
				Minutes:     int(expected.Sub(now).Minutes()),
				Time:        expected,
				Estimated:   estimated && journey.Monitored,
			})
		}
	}

	return &livetimes.RawPayload{
		Stops:                []livetimes.RawStop{stop},
		DeparturesPerService: q.Departures,
	}, nil
}

// getFirstString handles fields that can be string or []string
func getFirstString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

type siriResponse struct {
	Siri struct {
		ServiceDelivery struct {
			StopMonitoringDelivery []struct {
				MonitoredStopVisit []struct {
					MonitoredVehicleJourney monitoredVehicleJourney `json:"MonitoredVehicleJourney"`
				} `json:"MonitoredStopVisit"`
			} `json:"StopMonitoringDelivery"`
			SituationExchangeDelivery []struct {
				Situations struct {
					PtSituationElement []json.RawMessage `json:"PtSituationElement"`
				} `json:"Situations"`
			} `json:"SituationExchangeDelivery"`
		} `json:"ServiceDelivery"`
	} `json:"Siri"`
}

type monitoredVehicleJourney struct {
	PublishedLineName any  `json:"PublishedLineName"`
	DestinationName   any  `json:"DestinationName"`
	Monitored         bool `json:"Monitored"`
	MonitoredCall     struct {
		StopPointName         any       `json:"StopPointName"`
		AimedArrivalTime      time.Time `json:"AimedArrivalTime"`
		ExpectedArrivalTime   time.Time `json:"ExpectedArrivalTime"`
		ExpectedDepartureTime time.Time `json:"ExpectedDepartureTime"`
	} `json:"MonitoredCall"`
}
