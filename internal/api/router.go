package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/randytsao24/busalert/internal/api/handlers"
)

// Version is reported by /health and /api.
const Version = "1.0.0"

// Deps are the services the routes depend on. Checker may be nil, in which
// case POST /alerts/check answers 503.
type Deps struct {
	LiveTimes  handlers.LiveTimesProvider
	Checker    handlers.AlertChecker
	Departures int
	Feed       string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// NewRouter creates and configures the HTTP router with all routes and middleware
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(Version)
	rootHandler := handlers.NewRootHandler(Version, d.Feed)
	liveTimesHandler := handlers.NewLiveTimesHandler(d.LiveTimes, d.Departures)
	alertsHandler := handlers.NewAlertsHandler(d.Checker)

	// Core routes
	mux.HandleFunc("GET /{$}", rootHandler.Index)
	mux.HandleFunc("GET /api", rootHandler.Index)
	mux.HandleFunc("GET /health", healthHandler.Health)

	// Live times
	mux.HandleFunc("GET /livetimes/{stopCode}", liveTimesHandler.GetStop)
	mux.HandleFunc("GET /livetimes", liveTimesHandler.GetStops)

	// Alerts
	mux.HandleFunc("POST /alerts/check", alertsHandler.Check)

	mux.HandleFunc("/", rootHandler.NotFound)

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Apply middleware stack
	handler := Chain(mux,
		Recovery(logger),
		Logging(logger),
		CORS,
		Timeout(timeout),
	)

	return handler
}
