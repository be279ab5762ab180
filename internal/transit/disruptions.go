package transit

import (
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

type disruptions struct {
	global bool
	stops  map[string]bool
}

func (d disruptions) disrupted(code string) bool {
	return d.stops[code] || d.stops[code+"N"] || d.stops[code+"S"]
}

// parseDisruptions collects the alerts active at now. An alert that selects
// only an agency (or nothing) is network-wide.
func parseDisruptions(feed *gtfs.FeedMessage, now time.Time) disruptions {
	d := disruptions{stops: map[string]bool{}}
	unix := now.Unix()

	for _, entity := range feed.GetEntity() {
		alert := entity.GetAlert()
		if alert == nil || !activeAt(alert, unix) {
			continue
		}

		networkWide := true
		for _, ie := range alert.GetInformedEntity() {
			if stopID := ie.GetStopId(); stopID != "" {
				d.stops[stopID] = true
			}
			if ie.GetStopId() != "" || ie.GetRouteId() != "" || ie.GetTrip() != nil || ie.RouteType != nil {
				networkWide = false
			}
		}
		if networkWide {
			d.global = true
		}
	}
	return d
}

func activeAt(alert *gtfs.Alert, unix int64) bool {
	if len(alert.GetActivePeriod()) == 0 {
		return true
	}
	for _, period := range alert.GetActivePeriod() {
		start := int64(period.GetStart())
		end := int64(period.GetEnd())
		if unix >= start && (end == 0 || unix < end) {
			return true
		}
	}
	return false
}
