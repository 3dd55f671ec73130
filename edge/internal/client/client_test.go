package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quieteye/quieteye-stack/common/events"
	"github.com/quieteye/quieteye-stack/common/logging"
	"github.com/quieteye/quieteye-stack/common/middleware"
)

func fastRetry(n int) RetryPolicy {
	return RetryPolicy{MaxRetries: n, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func newTestClient(url string, opts ...Option) *IngestClient {
	opts = append([]Option{WithLogger(logging.Discard()), WithRetryPolicy(fastRetry(2))}, opts...)
	return NewIngestClient(url, opts...)
}

func testEvent() *events.Event {
	return &events.Event{
		EventType:  events.FireDetected,
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		SiteID:     "SITE-001",
		DeviceID:   "EDGE-01",
		CameraID:   "CAM-01",
		Zone:       events.StringPtr("warehouse"),
		Confidence: 0.97,
		Extra:      map[string]any{},
	}
}

func TestNewIngestClient(t *testing.T) {
	c := NewIngestClient("http://backend:8000/")
	assert.Equal(t, "http://backend:8000", c.BaseURL())
	assert.Equal(t, 10*time.Second, c.client.Timeout)
	assert.Equal(t, DefaultRetryPolicy(), c.retry)

	c = NewIngestClient("", WithTimeout(3*time.Second))
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, 3*time.Second, c.client.Timeout)
}

func TestPostEvent_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/events", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(middleware.HeaderRequestID))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "FIRE_DETECTED", payload["event_type"])
		assert.Equal(t, "2024-05-01T12:00:00Z", payload["timestamp"])
		assert.Equal(t, "warehouse", payload["zone"])
		assert.Nil(t, payload["snapshot_ref"])

		payload["id"] = 41
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	stored, err := newTestClient(server.URL).PostEvent(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, int64(41), stored.ID)
	assert.Equal(t, events.FireDetected, stored.EventType)
	assert.True(t, stored.Timestamp.Equal(testEvent().Timestamp))
}

func TestPostEvent_ValidationErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"validation failed","fields":[{"field":"confidence","reason":"must be between 0.0 and 1.0"}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).PostEvent(context.Background(), testEvent())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "validation failed", apiErr.Message)
	assert.Equal(t, []events.FieldError{{Field: "confidence", Reason: "must be between 0.0 and 1.0"}}, apiErr.Fields)
	assert.False(t, apiErr.Temporary())
	assert.Contains(t, err.Error(), "confidence: must be between")
	assert.Equal(t, int32(1), calls.Load())
}

func TestPostEvent_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	requestIDs := map[string]bool{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requestIDs[r.Header.Get(middleware.HeaderRequestID)] = true
		mu.Unlock()

		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7,"event_type":"FIRE_DETECTED","timestamp":"2024-05-01T12:00:00Z","site_id":"SITE-001","device_id":"EDGE-01","camera_id":"CAM-01","zone":null,"confidence":0.97,"snapshot_ref":null,"extra":{}}`))
	}))
	defer server.Close()

	stored, err := newTestClient(server.URL).PostEvent(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, int64(7), stored.ID)
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, requestIDs, 1, "retries should reuse the request ID")
}

func TestPostEvent_RetryLogCarriesStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1,"event_type":"FIRE_DETECTED","timestamp":"2024-05-01T12:00:00Z","site_id":"SITE-001","device_id":"EDGE-01","camera_id":"CAM-01","zone":null,"confidence":0.97,"snapshot_ref":null,"extra":{"track_id":9007199254740993}}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(server.URL, WithLogger(logging.NewWithWriter(&buf, slog.LevelInfo, "json")))

	stored, err := c.PostEvent(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), stored.Extra["track_id"])

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "backend request failed, retrying", entry["msg"])
	assert.Equal(t, float64(http.StatusServiceUnavailable), entry[logging.FieldStatus])
	assert.Equal(t, float64(1), entry[logging.FieldAttempt])
}

func TestPostEvent_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).PostEvent(context.Background(), testEvent())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
	assert.True(t, apiErr.Temporary())
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostEvent_NoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, WithRetryPolicy(NoRetry())).PostEvent(context.Background(), testEvent())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPostEvent_TransportError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = newTestClient("http://"+addr).PostEvent(context.Background(), testEvent())
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.MethodPost, te.Method)
	assert.Equal(t, "http://"+addr+"/v1/events", te.URL)
}

func TestPostEvent_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := newTestClient(server.URL, WithTimeout(20*time.Millisecond), WithRetryPolicy(NoRetry()))
	_, err := c.PostEvent(context.Background(), testEvent())

	var te *TransportError
	require.ErrorAs(t, err, &te)
}

func TestPostEvent_CanceledContextStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server.URL, WithRetryPolicy(RetryPolicy{MaxRetries: 5, InitialInterval: 50 * time.Millisecond}))
	_, err := c.PostEvent(ctx, testEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestListEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/events", r.URL.Path)

		switch r.URL.Query().Get("limit") {
		case "2":
			_, _ = w.Write([]byte(`[{"id":2,"event_type":"FIRE_DETECTED","timestamp":"2024-05-01T12:00:01Z","site_id":"S","device_id":"D","camera_id":"C","zone":null,"confidence":0.9,"snapshot_ref":null,"extra":{}},
				{"id":1,"event_type":"ATTENDANCE_CHECKIN","timestamp":"2024-05-01T12:00:00Z","site_id":"S","device_id":"D","camera_id":"C","zone":"lobby","confidence":0.6,"snapshot_ref":null,"extra":{}}]`))
		case "":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"limit must be between 1 and 500, got 9999"}`))
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	got, err := c.ListEvents(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, "lobby", *got[1].Zone)

	got, err = c.ListEvents(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = c.ListEvents(context.Background(), 9999)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "limit must be between")
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok","service":"quieteye-backend","db_ok":false}`))
	}))
	defer server.Close()

	hs, err := newTestClient(server.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HealthStatus{Status: "ok", Service: "quieteye-backend", DBOK: false}, *hs)
}

func TestUndecodableResponseIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`<html>proxy login</html>`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
	assert.Equal(t, int32(1), calls.Load())
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "backend returned 500: Internal Server Error", (&APIError{StatusCode: 500}).Error())
	assert.Equal(t,
		"backend returned 422: validation failed (site_id: field required; zone: must be a string)",
		(&APIError{StatusCode: 422, Message: "validation failed", Fields: []events.FieldError{
			{Field: "site_id", Reason: "field required"},
			{Field: "zone", Reason: "must be a string"},
		}}).Error())
}

func TestTransportError_Unwrap(t *testing.T) {
	te := &TransportError{Method: "GET", URL: "http://x/health", Err: context.DeadlineExceeded}
	assert.True(t, errors.Is(te, context.DeadlineExceeded))
	assert.Equal(t, "GET http://x/health: context deadline exceeded", te.Error())
}
