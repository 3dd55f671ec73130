package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quieteye/quieteye-stack/common/logging"
	"github.com/quieteye/quieteye-stack/common/middleware"
	"github.com/quieteye/quieteye-stack/ingest/internal/handlers"
	"github.com/quieteye/quieteye-stack/ingest/internal/repository"
	"github.com/quieteye/quieteye-stack/ingest/internal/service"
)

func newTestRouter(t *testing.T, origins ...string) http.Handler {
	t.Helper()

	repo := repository.NewInMemoryRepository()
	h := handlers.NewHandler(
		service.NewIngestService(repo, service.WithLogger(logging.Discard())),
		service.NewQueryService(repo),
		service.NewHealthProbe(repo),
		handlers.WithLogger(logging.Discard()),
	)
	return NewRouter(h, Options{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		CORSOrigins: origins,
	})
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"list events", http.MethodGet, "/v1/events", "", http.StatusOK},
		{"create event", http.MethodPost, "/v1/events",
			`{"event_type":"FIRE_DETECTED","site_id":"S1","device_id":"D1","camera_id":"C1","confidence":0.97}`,
			http.StatusCreated},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"wrong method", http.MethodDelete, "/v1/events", "", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/v2/events", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
		})
	}
}

func TestRouter_MetricsExposeIngestCounters(t *testing.T) {
	router := newTestRouter(t)

	post := httptest.NewRequest(http.MethodPost, "/v1/events",
		strings.NewReader(`{"event_type":"ATTENDANCE_CHECKIN","site_id":"S1","device_id":"D1","camera_id":"C1","confidence":0.5}`))
	router.ServeHTTP(httptest.NewRecorder(), post)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `quieteye_ingest_events_total{event_type="ATTENDANCE_CHECKIN"}`)
}

func TestRouter_PropagatesRequestID(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(context.Background())
	req.Header.Set(middleware.HeaderRequestID, "edge-abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "edge-abc", w.Header().Get(middleware.HeaderRequestID))
}

func TestRouter_CORS(t *testing.T) {
	router := newTestRouter(t, "https://dash.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/v1/events", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dash.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
