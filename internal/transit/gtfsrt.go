package transit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/randytsao24/busalert/internal/livetimes"
	"github.com/randytsao24/busalert/internal/tracker"
)

// GTFSRT reads a GTFS-Realtime trip updates feed. The feed always carries
// the whole network, so one call serves any number of stops.
type GTFSRT struct {
	feedURL string
	headers map[string]string
	now     func() time.Time
}

// NewGTFSRT creates the protocol for feedURL. headers are sent with every
// call, e.g. an API key header.
func NewGTFSRT(feedURL string, headers map[string]string) *GTFSRT {
	return &GTFSRT{feedURL: feedURL, headers: headers, now: time.Now}
}

func (g *GTFSRT) Name() string { return "gtfsrt" }

func (g *GTFSRT) MaxStopsPerCall() int { return 0 }

func (g *GTFSRT) NewHTTPRequest(ctx context.Context, q tracker.Query) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-protobuf")
	for k, v := range g.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (g *GTFSRT) Decode(body []byte, q tracker.Query) (*livetimes.RawPayload, error) {
	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("parsing protobuf: %w", err)
	}

	now := g.now()
	stops := make([]livetimes.RawStop, len(q.StopCodes))
	for i, code := range q.StopCodes {
		stops[i] = livetimes.RawStop{Code: code}
	}
	found := make([]bool, len(q.StopCodes))

	for _, entity := range feed.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil {
			continue
		}
		if tripUpdate.GetTrip().GetScheduleRelationship() == gtfs.TripDescriptor_CANCELED {
			continue
		}

		routeID := tripUpdate.GetTrip().GetRouteId()

		for _, stu := range tripUpdate.GetStopTimeUpdate() {
			if stu.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_SKIPPED {
				continue
			}

			i := matchStop(q.StopCodes, stu.GetStopId())
			if i < 0 {
				continue
			}
			found[i] = true

			arrivalTime := stu.GetArrival().GetTime()
			if arrivalTime == 0 {
				arrivalTime = stu.GetDeparture().GetTime()
			}
			if arrivalTime == 0 {
				continue
			}

			arrTime := time.Unix(arrivalTime, 0)
			if arrTime.Before(now) {
				continue // Skip past arrivals
			}

			stops[i].Departures = append(stops[i].Departures, livetimes.RawDeparture{
				Service:     routeID,
				Destination: direction(stu.GetStopId()),
				Minutes:     int(arrTime.Sub(now).Minutes()),
				Time:        arrTime,
				Estimated:   true,
			})
		}
	}

	d := parseDisruptions(feed, now)
	raw := &livetimes.RawPayload{
		GlobalDisruption:     d.global,
		DeparturesPerService: q.Departures,
	}
	for i, s := range stops {
		s.Disrupted = d.disrupted(s.Code)
		// A stop the feed never mentions has no data.
		if found[i] || s.Disrupted {
			raw.Stops = append(raw.Stops, s)
		}
	}
	return raw, nil
}

// matchStop finds the requested stop for a feed stop id. Directional
// platforms ("127N", "127S") belong to their parent ("127").
func matchStop(codes []string, stopID string) int {
	for i, code := range codes {
		if belongsTo(stopID, code) {
			return i
		}
	}
	return -1
}

func belongsTo(stopID, code string) bool {
	return stopID == code || stopID == code+"N" || stopID == code+"S"
}

func direction(stopID string) string {
	switch {
	case strings.HasSuffix(stopID, "N"):
		return "northbound"
	case strings.HasSuffix(stopID, "S"):
		return "southbound"
	}
	return ""
}
