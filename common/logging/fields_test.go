package logging

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestStringFields(t *testing.T) {
	tests := []struct {
		name  string
		attr  slog.Attr
		key   string
		value string
	}{
		{"service", Service("quieteye-backend"), FieldService, "quieteye-backend"},
		{"site", SiteID("warehouse-7"), FieldSiteID, "warehouse-7"},
		{"device", DeviceID("jetson-02"), FieldDeviceID, "jetson-02"},
		{"camera", CameraID("cam-dock"), FieldCameraID, "cam-dock"},
		{"event type", EventType("FIRE_DETECTED"), FieldEventType, "FIRE_DETECTED"},
		{"ip", IP("10.0.0.5"), FieldIP, "10.0.0.5"},
		{"method", Method("POST"), FieldMethod, "POST"},
		{"path", Path("/v1/events"), FieldPath, "/v1/events"},
		{"backend", BackendURL("http://localhost:8000"), FieldBackendURL, "http://localhost:8000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("expected key %q, got %q", tt.key, tt.attr.Key)
			}
			if tt.attr.Value.String() != tt.value {
				t.Errorf("expected value %q, got %q", tt.value, tt.attr.Value.String())
			}
		})
	}
}

func TestIntFields(t *testing.T) {
	tests := []struct {
		name  string
		attr  slog.Attr
		key   string
		value int64
	}{
		{"event id", EventID(42), FieldEventID, 42},
		{"status", Status(201), FieldStatus, 201},
		{"attempt", Attempt(3), FieldAttempt, 3},
		{"limit", Limit(500), FieldLimit, 500},
		{"duration", Duration(1500 * time.Millisecond), FieldDuration, 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("expected key %q, got %q", tt.key, tt.attr.Key)
			}
			if tt.attr.Value.Int64() != tt.value {
				t.Errorf("expected value %d, got %d", tt.value, tt.attr.Value.Int64())
			}
		})
	}
}

func TestError(t *testing.T) {
	attr := Error(errors.New("connection refused"))
	if attr.Key != FieldError {
		t.Errorf("expected key %q, got %q", FieldError, attr.Key)
	}
	if attr.Value.String() != "connection refused" {
		t.Errorf("unexpected value %q", attr.Value.String())
	}

	if got := Error(nil).Value.String(); got != "" {
		t.Errorf("expected empty value for nil error, got %q", got)
	}
}
