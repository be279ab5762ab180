package handlers

import (
	"net/http"
)

type AlertsHandler struct {
	checker AlertChecker
}

func NewAlertsHandler(checker AlertChecker) *AlertsHandler {
	return &AlertsHandler{checker: checker}
}

// Check runs one alert check cycle and reports what it did.
func (h *AlertsHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":     "unavailable",
			"message":   "alert checking is not configured",
			"retryable": false,
		})
		return
	}

	res, err := h.checker.Check(r.Context())
	if err != nil {
		writeError(w, "Alert check failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  res,
	})
}
