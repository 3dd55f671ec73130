package events

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"
)

// Confidence bounds, inclusive.
const (
	MinConfidence = 0.0
	MaxConfidence = 1.0
)

// Field names as they appear on the wire.
const (
	FieldEventType   = "event_type"
	FieldTimestamp   = "timestamp"
	FieldSiteID      = "site_id"
	FieldDeviceID    = "device_id"
	FieldCameraID    = "camera_id"
	FieldZone        = "zone"
	FieldConfidence  = "confidence"
	FieldSnapshotRef = "snapshot_ref"
	FieldExtra       = "extra"
)

// Column widths of the events table, in characters.
const (
	MaxIDLength          = 128
	MaxSnapshotRefLength = 512
)

const (
	reasonRequired = "field required"
	reasonNUL      = "must not contain NUL characters"
)

// FieldError describes why a single field was rejected.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every offending field of a rejected event.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("invalid event: ")
	for i, f := range e.Fields {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(f.Field)
		sb.WriteString(": ")
		sb.WriteString(f.Reason)
	}
	return sb.String()
}

// HasErrors returns true if any field was rejected.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// Has reports whether field has already been rejected.
func (e *ValidationError) Has(field string) bool {
	return slices.ContainsFunc(e.Fields, func(f FieldError) bool { return f.Field == field })
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// err returns e sorted by field name, or nil when nothing was rejected.
func (e *ValidationError) err() error {
	if !e.HasErrors() {
		return nil
	}
	slices.SortStableFunc(e.Fields, func(a, b FieldError) int {
		return strings.Compare(a.Field, b.Field)
	})
	return e
}

// Validate checks e against the schema rules. It returns a *ValidationError
// naming every offending field, or nil.
func (e *Event) Validate() error {
	ve := &ValidationError{}
	e.validate(ve)
	return ve.err()
}

// validate appends rule violations to ve, skipping fields that were already
// rejected while decoding.
func (e *Event) validate(ve *ValidationError) {
	if !ve.Has(FieldEventType) {
		switch {
		case e.EventType == "":
			ve.add(FieldEventType, reasonRequired)
		case !e.EventType.Valid():
			ve.add(FieldEventType, fmt.Sprintf("unknown event type %q; must be one of %s", e.EventType, eventTypeList()))
		}
	}

	if !ve.Has(FieldConfidence) {
		c := e.Confidence
		if math.IsNaN(c) || c < MinConfidence || c > MaxConfidence {
			ve.add(FieldConfidence, fmt.Sprintf("must be between %.1f and %.1f", MinConfidence, MaxConfidence))
		}
	}

	requireString(ve, FieldSiteID, e.SiteID)
	requireString(ve, FieldDeviceID, e.DeviceID)
	requireString(ve, FieldCameraID, e.CameraID)
	checkString(ve, FieldSiteID, e.SiteID, MaxIDLength)
	checkString(ve, FieldDeviceID, e.DeviceID, MaxIDLength)
	checkString(ve, FieldCameraID, e.CameraID, MaxIDLength)
	if e.Zone != nil {
		checkString(ve, FieldZone, *e.Zone, MaxIDLength)
	}
	if e.SnapshotRef != nil {
		checkString(ve, FieldSnapshotRef, *e.SnapshotRef, MaxSnapshotRefLength)
	}

	if !ve.Has(FieldExtra) && containsNUL(e.Extra) {
		ve.add(FieldExtra, "keys and string values "+reasonNUL)
	}
}

func requireString(ve *ValidationError, field, value string) {
	if ve.Has(field) {
		return
	}
	if strings.TrimSpace(value) == "" {
		ve.add(field, reasonRequired)
	}
}

// checkString enforces what the storage column accepts: no NUL bytes and at
// most max characters.
func checkString(ve *ValidationError, field, value string, max int) {
	if ve.Has(field) {
		return
	}
	switch {
	case strings.IndexByte(value, 0) >= 0:
		ve.add(field, reasonNUL)
	case utf8.RuneCountInString(value) > max:
		ve.add(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

// containsNUL walks a decoded extra document looking for NUL in keys or
// string values.
func containsNUL(v any) bool {
	switch v := v.(type) {
	case string:
		return strings.IndexByte(v, 0) >= 0
	case map[string]any:
		for k, elem := range v {
			if strings.IndexByte(k, 0) >= 0 || containsNUL(elem) {
				return true
			}
		}
	case []any:
		for _, elem := range v {
			if containsNUL(elem) {
				return true
			}
		}
	}
	return false
}
