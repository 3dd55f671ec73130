package client

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/quieteye/quieteye-stack/common/events"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []events.FieldError
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "backend returned %d: %s", e.StatusCode, msg)
	for i, f := range e.Fields {
		if i == 0 {
			sb.WriteString(" (")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(f.Field)
		sb.WriteString(": ")
		sb.WriteString(f.Reason)
		if i == len(e.Fields)-1 {
			sb.WriteString(")")
		}
	}
	return sb.String()
}

// Temporary reports whether repeating the request may succeed. Client
// errors are permanent; the request itself has to change.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// TransportError means no HTTP answer was received: connection refused,
// timeout or cancellation. Whether the backend persisted the event is
// unknown.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
