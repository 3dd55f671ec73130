package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed is returned by Decode when the payload is not a JSON object.
var ErrMalformed = errors.New("malformed event payload")

// Decode parses a raw JSON event field by field and validates it. Type
// mismatches and rule violations are reported together as a
// *ValidationError with one entry per offending field. Unknown fields are
// ignored.
func Decode(data []byte) (*Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrMalformed
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	ve := &ValidationError{}
	ev := &Event{
		EventType: EventType(decodeString(raw, FieldEventType, ve)),
		SiteID:    decodeString(raw, FieldSiteID, ve),
		DeviceID:  decodeString(raw, FieldDeviceID, ve),
		CameraID:  decodeString(raw, FieldCameraID, ve),
	}
	ev.Zone = decodeOptionalString(raw, FieldZone, ve)
	ev.SnapshotRef = decodeOptionalString(raw, FieldSnapshotRef, ve)
	ev.Confidence = decodeConfidence(raw, ve)
	ev.Timestamp = decodeTimestamp(raw, ve)
	ev.Extra = decodeExtra(raw, ve)

	ev.validate(ve)
	if err := ve.err(); err != nil {
		return nil, err
	}
	return ev, nil
}

func present(raw map[string]json.RawMessage, field string) (json.RawMessage, bool) {
	v, ok := raw[field]
	if !ok || string(v) == "null" {
		return nil, false
	}
	return v, true
}

// decodeString reads a required string; absence is left for validate to
// report.
func decodeString(raw map[string]json.RawMessage, field string, ve *ValidationError) string {
	v, ok := present(raw, field)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		ve.add(field, "must be a string")
		return ""
	}
	return s
}

func decodeOptionalString(raw map[string]json.RawMessage, field string, ve *ValidationError) *string {
	v, ok := present(raw, field)
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		ve.add(field, "must be a string")
		return nil
	}
	return &s
}

func decodeConfidence(raw map[string]json.RawMessage, ve *ValidationError) float64 {
	v, ok := present(raw, FieldConfidence)
	if !ok {
		ve.add(FieldConfidence, reasonRequired)
		return 0
	}
	var c float64
	if err := json.Unmarshal(v, &c); err != nil {
		ve.add(FieldConfidence, "must be a number")
		return 0
	}
	return c
}

func decodeTimestamp(raw map[string]json.RawMessage, ve *ValidationError) (t time.Time) {
	v, ok := present(raw, FieldTimestamp)
	if !ok {
		return t
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		ve.add(FieldTimestamp, "must be an ISO 8601 timestamp string")
		return t
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		ve.add(FieldTimestamp, err.Error())
		return t
	}
	// The zero instant stands for "not supplied" everywhere downstream.
	if parsed.IsZero() {
		ve.add(FieldTimestamp, "must be later than 0001-01-01T00:00:00Z")
		return t
	}
	return parsed
}

func decodeExtra(raw map[string]json.RawMessage, ve *ValidationError) map[string]any {
	v, ok := present(raw, FieldExtra)
	if !ok {
		return map[string]any{}
	}
	m, err := DecodeExtra(v)
	if err != nil {
		ve.add(FieldExtra, "must be an object")
		return map[string]any{}
	}
	return m
}

// DecodeExtra parses a JSON object of free-form attributes. Numbers are
// kept as json.Number so integers wider than a float64 mantissa survive
// unchanged. A JSON null yields an empty map.
func DecodeExtra(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after extra object")
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}
