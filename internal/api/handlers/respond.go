package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/randytsao24/busalert/internal/livetimes"
	"github.com/randytsao24/busalert/internal/tracker"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

// writeError maps err onto a status code and the error body.
func writeError(w http.ResponseWriter, message string, err error) {
	writeJSON(w, statusFor(err), map[string]any{
		"error":     tracker.Kind(err),
		"message":   message + ": " + err.Error(),
		"retryable": tracker.Retryable(err),
	})
}

func statusFor(err error) int {
	if errors.Is(err, tracker.ErrInvalidRequest) || errors.Is(err, livetimes.ErrInvalidStopCode) {
		return http.StatusBadRequest
	}

	var rejected *tracker.RequestRejectedError
	var server *tracker.ServerError
	var te tracker.Error
	switch {
	case errors.As(err, &rejected):
		if rejected.Code == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case errors.As(err, &server):
		return http.StatusBadGateway
	case errors.As(err, &te):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func parseIntQueryParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}

	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
