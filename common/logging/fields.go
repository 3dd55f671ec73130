package logging

import (
	"log/slog"
	"time"
)

// Common field names for consistent logging across services.
const (
	FieldService    = "service"
	FieldSiteID     = "site_id"
	FieldDeviceID   = "device_id"
	FieldCameraID   = "camera_id"
	FieldEventType  = "event_type"
	FieldEventID    = "event_id"
	FieldIP         = "ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldAttempt    = "attempt"
	FieldLimit      = "limit"
	FieldBackendURL = "backend_url"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// SiteID returns a slog attribute for the site a device belongs to.
func SiteID(id string) slog.Attr {
	return slog.String(FieldSiteID, id)
}

// DeviceID returns a slog attribute for the edge device ID.
func DeviceID(id string) slog.Attr {
	return slog.String(FieldDeviceID, id)
}

// CameraID returns a slog attribute for the camera ID.
func CameraID(id string) slog.Attr {
	return slog.String(FieldCameraID, id)
}

// EventType returns a slog attribute for the event type.
func EventType(t string) slog.Attr {
	return slog.String(FieldEventType, t)
}

// EventID returns a slog attribute for a stored event ID.
func EventID(id int64) slog.Attr {
	return slog.Int64(FieldEventID, id)
}

// IP returns a slog attribute for the IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for d in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// Attempt returns a slog attribute for a retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(FieldAttempt, n)
}

// Limit returns a slog attribute for a query limit.
func Limit(n int) slog.Attr {
	return slog.Int(FieldLimit, n)
}

// BackendURL returns a slog attribute for the ingestion backend address.
func BackendURL(u string) slog.Attr {
	return slog.String(FieldBackendURL, u)
}
