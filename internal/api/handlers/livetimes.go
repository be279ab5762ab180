package handlers

import (
	"net/http"
	"strings"

	"github.com/randytsao24/busalert/internal/livetimes"
)

const (
	maxDepartures   = 20
	maxStopsPerCall = 25
)

type LiveTimesHandler struct {
	provider   LiveTimesProvider
	departures int
}

// NewLiveTimesHandler serves live times; departures is the per-service
// default when the query does not set one.
func NewLiveTimesHandler(provider LiveTimesProvider, departures int) *LiveTimesHandler {
	return &LiveTimesHandler{provider: provider, departures: departures}
}

type stopView struct {
	StopCode string `json:"stop_code"`
	livetimes.Stop
}

func liveTimesBody(lt *livetimes.LiveTimes) map[string]any {
	stops := make([]stopView, 0, lt.Len())
	for _, s := range lt.Stops() {
		stops = append(stops, stopView{StopCode: s.Code(), Stop: s})
	}
	return map[string]any{
		"success":           true,
		"receive_time":      lt.ReceiveTime().UTC(),
		"global_disruption": lt.HasGlobalDisruption(),
		"stops":             stops,
		"count":             len(stops),
	}
}

// GetStop returns live departures for one stop.
func (h *LiveTimesHandler) GetStop(w http.ResponseWriter, r *http.Request) {
	stopCode := r.PathValue("stopCode")
	departures := parseIntQueryParam(r, "departures", h.departures, 1, maxDepartures)

	lt, err := h.provider.GetLiveTimes(r.Context(), stopCode, departures)
	if err != nil {
		writeError(w, "Failed to fetch live times", err)
		return
	}

	writeJSON(w, http.StatusOK, liveTimesBody(lt))
}

// GetStops returns live departures for a comma-separated list of stops.
func (h *LiveTimesHandler) GetStops(w http.ResponseWriter, r *http.Request) {
	stopsParam := r.URL.Query().Get("stops")
	if strings.TrimSpace(stopsParam) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "invalid",
			"message":   "stops query parameter is required (comma-separated stop codes)",
			"retryable": false,
		})
		return
	}

	stopCodes := strings.Split(stopsParam, ",")
	if len(stopCodes) > maxStopsPerCall {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "invalid",
			"message":   "too many stops requested",
			"retryable": false,
		})
		return
	}
	departures := parseIntQueryParam(r, "departures", h.departures, 1, maxDepartures)

	lt, err := h.provider.GetLiveTimesForStops(r.Context(), stopCodes, departures)
	if err != nil {
		writeError(w, "Failed to fetch live times", err)
		return
	}

	writeJSON(w, http.StatusOK, liveTimesBody(lt))
}
