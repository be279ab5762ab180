package handlers

import (
	"net/http"
)

type RootHandler struct {
	version string
	feed    string
}

func NewRootHandler(version, feed string) *RootHandler {
	return &RootHandler{version: version, feed: feed}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "busalert",
		"description": "Live departure times and arrival alerts",
		"version":     h.version,
		"feed":        h.feed,
		"endpoints": map[string]string{
			"GET /api":                  "API information",
			"GET /health":               "Health check",
			"GET /livetimes/{stopCode}": "Live departures for one stop (?departures=N)",
			"GET /livetimes?stops=a,b":  "Live departures for several stops (?departures=N)",
			"POST /alerts/check":        "Run one alert check cycle",
		},
	})
}

func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "Route not found",
		"message": "Check /api for available routes",
	})
}
