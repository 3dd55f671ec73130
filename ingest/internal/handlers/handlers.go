package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/quieteye/quieteye-stack/common/events"
	"github.com/quieteye/quieteye-stack/common/httputil"
	"github.com/quieteye/quieteye-stack/common/logging"
	"github.com/quieteye/quieteye-stack/ingest/internal/metrics"
	"github.com/quieteye/quieteye-stack/ingest/internal/ratelimit"
	"github.com/quieteye/quieteye-stack/ingest/internal/service"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "quieteye-backend"

// DefaultMaxBodyBytes bounds a single event submission.
const DefaultMaxBodyBytes = 64 * 1024

type Ingester interface {
	Ingest(ctx context.Context, ev *events.Event) (*events.StoredEvent, error)
}

type Querier interface {
	ListRecent(ctx context.Context, limit int) ([]*events.StoredEvent, error)
}

type Prober interface {
	IsReachable(ctx context.Context) bool
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	DBOK    bool   `json:"db_ok"`
}

type Handler struct {
	ingest  Ingester
	query   Querier
	probe   Prober
	limiter ratelimit.RateLimiter
	maxBody int64
	logger  *logging.Logger
}

type Option func(*Handler)

// WithRateLimiter enables per-device rate limiting of submissions.
func WithRateLimiter(l ratelimit.RateLimiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func NewHandler(ingest Ingester, query Querier, probe Prober, opts ...Option) *Handler {
	h := &Handler{
		ingest:  ingest,
		query:   query,
		probe:   probe,
		limiter: &ratelimit.NoOpRateLimiter{},
		maxBody: DefaultMaxBodyBytes,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CreateEvent handles POST /v1/events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := httputil.ReadBody(w, r, h.maxBody)
	if err != nil {
		metrics.IngestRequests.WithLabelValues(metrics.OutcomeMalformed).Inc()
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			httputil.WriteError(w, http.StatusBadRequest, "request body too large")
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	metrics.EventBytesTotal.Add(float64(len(body)))

	ev, err := events.Decode(body)
	if err != nil {
		h.writeDecodeError(w, r, err)
		return
	}

	if !h.allow(r, ev) {
		metrics.IngestRequests.WithLabelValues(metrics.OutcomeRateLimited).Inc()
		httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	stored, err := h.ingest.Ingest(ctx, ev)
	if err != nil {
		var ve *events.ValidationError
		if errors.As(err, &ve) {
			h.writeValidationError(w, ve)
			return
		}

		metrics.IngestRequests.WithLabelValues(metrics.OutcomeError).Inc()
		h.logger.ErrorContext(ctx, "failed to ingest event",
			logging.EventType(string(ev.EventType)),
			logging.SiteID(ev.SiteID),
			logging.DeviceID(ev.DeviceID),
			logging.IP(httputil.GetClientIP(r)),
			logging.Status(http.StatusInternalServerError),
			logging.Error(err),
		)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	metrics.IngestRequests.WithLabelValues(metrics.OutcomeCreated).Inc()
	httputil.WriteJSON(w, http.StatusCreated, stored)
}

// ListEvents handles GET /v1/events?limit=N
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, ok, err := httputil.QueryInt(r, "limit")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		limit = service.DefaultLimit
	}

	result, err := h.query.ListRecent(ctx, limit)
	if err != nil {
		var le *service.LimitError
		if errors.As(err, &le) {
			httputil.WriteError(w, http.StatusBadRequest, le.Error())
			return
		}

		h.logger.ErrorContext(ctx, "failed to list events",
			logging.Limit(limit),
			logging.Status(http.StatusInternalServerError),
			logging.Error(err),
		)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Health handles GET /health. It always answers 200; db_ok carries the
// result of the store probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbOK := h.probe != nil && h.probe.IsReachable(r.Context())
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: ServiceName,
		DBOK:    dbOK,
	})
}

// allow applies the per-device rate limit. A limiter failure lets the
// request through: losing a safety event is worse than exceeding a budget.
func (h *Handler) allow(r *http.Request, ev *events.Event) bool {
	ctx := r.Context()
	allowed, err := h.limiter.Allow(ctx, ratelimit.DeviceKey(ev.SiteID, ev.DeviceID))
	if err != nil {
		metrics.RateLimitErrors.Inc()
		h.logger.WarnContext(ctx, "rate limit check failed, allowing request",
			logging.SiteID(ev.SiteID),
			logging.DeviceID(ev.DeviceID),
			logging.IP(httputil.GetClientIP(r)),
			logging.Error(err),
		)
		return true
	}
	if !allowed {
		h.logger.WarnContext(ctx, "rate limit exceeded",
			logging.SiteID(ev.SiteID),
			logging.DeviceID(ev.DeviceID),
			logging.IP(httputil.GetClientIP(r)),
			logging.Status(http.StatusTooManyRequests),
		)
	}
	return allowed
}

func (h *Handler) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *events.ValidationError
	if errors.As(err, &ve) {
		h.writeValidationError(w, ve)
		return
	}

	metrics.IngestRequests.WithLabelValues(metrics.OutcomeMalformed).Inc()
	h.logger.DebugContext(r.Context(), "malformed event payload",
		logging.IP(httputil.GetClientIP(r)),
		logging.Error(err),
	)
	httputil.WriteError(w, http.StatusBadRequest, "request body must be a JSON object")
}

func (h *Handler) writeValidationError(w http.ResponseWriter, ve *events.ValidationError) {
	metrics.IngestRequests.WithLabelValues(metrics.OutcomeInvalid).Inc()
	for _, f := range ve.Fields {
		metrics.ValidationFailures.WithLabelValues(f.Field).Inc()
	}
	httputil.WriteFieldErrors(w, http.StatusUnprocessableEntity, "validation failed", ve.Fields)
}
