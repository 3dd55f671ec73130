package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quieteye/quieteye-stack/common/middleware"
	"github.com/quieteye/quieteye-stack/ingest/internal/handlers"
)

// Options configures the middleware around the API routes.
type Options struct {
	Logger      *slog.Logger
	CORSOrigins []string
}

// NewRouter constructs a ServeMux with the event API routes registered.
func NewRouter(h *handlers.Handler, opts Options) http.Handler {
	mux := http.NewServeMux()

	// Event API
	mux.HandleFunc("POST /v1/events", h.CreateEvent)
	mux.HandleFunc("GET /v1/events", h.ListEvents)

	// Health
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = mux
	handler = middleware.CORS(middleware.DefaultCORSConfig(opts.CORSOrigins))(handler)
	handler = middleware.AccessLog(logger, "/health", "/metrics")(handler)
	return middleware.RequestID(handler)
}
