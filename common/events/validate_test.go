package events

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent() *Event {
	return &Event{
		EventType:  FireDetected,
		SiteID:     "S1",
		DeviceID:   "D1",
		CameraID:   "C1",
		Confidence: 0.97,
	}
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected *ValidationError, got %T", err)
	names := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		names[i] = f.Field
	}
	return names
}

func TestEventType_Valid(t *testing.T) {
	for _, et := range EventTypes() {
		assert.True(t, et.Valid(), "%s should be valid", et)
	}
	assert.Len(t, EventTypes(), 6)
	assert.False(t, EventType("INTRUSION").Valid())
	assert.False(t, EventType("fire_detected").Valid())
	assert.False(t, EventType("").Valid())
}

func TestEventTypes_ReturnsCopy(t *testing.T) {
	types := EventTypes()
	types[0] = "MUTATED"
	assert.Equal(t, AfterHoursPresence, EventTypes()[0])
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validEvent().Validate())
}

func TestValidate_ConfidenceBounds(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		wantErr    bool
	}{
		{"lower bound", 0.0, false},
		{"upper bound", 1.0, false},
		{"midpoint", 0.5, false},
		{"negative", -0.01, true},
		{"above one", 1.0001, true},
		{"NaN", math.NaN(), true},
		{"positive infinity", math.Inf(1), true},
		{"negative infinity", math.Inf(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent()
			ev.Confidence = tt.confidence
			err := ev.Validate()
			if tt.wantErr {
				assert.Equal(t, []string{FieldConfidence}, fieldNames(t, err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_UnknownEventType(t *testing.T) {
	ev := validEvent()
	ev.EventType = "DOOR_OPENED"

	err := ev.Validate()
	assert.Equal(t, []string{FieldEventType}, fieldNames(t, err))
	assert.Contains(t, err.Error(), "DOOR_OPENED")
}

func TestValidate_RequiredIdentifiers(t *testing.T) {
	ev := validEvent()
	ev.SiteID = ""
	ev.DeviceID = "   "
	ev.CameraID = ""

	err := ev.Validate()
	assert.Equal(t, []string{FieldCameraID, FieldDeviceID, FieldSiteID}, fieldNames(t, err))
}

func TestValidate_ReportsEveryField(t *testing.T) {
	ev := &Event{Confidence: 3}

	err := ev.Validate()
	assert.Equal(t,
		[]string{FieldCameraID, FieldConfidence, FieldDeviceID, FieldEventType, FieldSiteID},
		fieldNames(t, err),
	)
}

func TestValidate_OptionalFields(t *testing.T) {
	ev := validEvent()
	ev.Zone = nil
	ev.SnapshotRef = nil
	ev.Extra = nil
	assert.NoError(t, ev.Validate())

	ev.Zone = StringPtr("loading-dock")
	ev.SnapshotRef = StringPtr("s3://bucket/snap.jpg")
	ev.Extra = map[string]any{"note": "x"}
	assert.NoError(t, ev.Validate())
}

func TestValidate_StorageLimits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Event)
		field  string
	}{
		{"site id too long", func(e *Event) { e.SiteID = strings.Repeat("s", MaxIDLength+1) }, FieldSiteID},
		{"device id too long", func(e *Event) { e.DeviceID = strings.Repeat("d", MaxIDLength+1) }, FieldDeviceID},
		{"camera id too long", func(e *Event) { e.CameraID = strings.Repeat("c", MaxIDLength+1) }, FieldCameraID},
		{"zone too long", func(e *Event) { e.Zone = StringPtr(strings.Repeat("z", MaxIDLength+1)) }, FieldZone},
		{"snapshot ref too long", func(e *Event) { e.SnapshotRef = StringPtr(strings.Repeat("x", MaxSnapshotRefLength+1)) }, FieldSnapshotRef},
		{"nul in site id", func(e *Event) { e.SiteID = "S\x001" }, FieldSiteID},
		{"nul in zone", func(e *Event) { e.Zone = StringPtr("gate\x00") }, FieldZone},
		{"nul in snapshot ref", func(e *Event) { e.SnapshotRef = StringPtr("a\x00.jpg") }, FieldSnapshotRef},
		{"nul in extra key", func(e *Event) { e.Extra = map[string]any{"k\x00": 1} }, FieldExtra},
		{"nul in nested extra value", func(e *Event) {
			e.Extra = map[string]any{"meta": map[string]any{"tags": []any{"ok", "b\x00d"}}}
		}, FieldExtra},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent()
			tt.mutate(ev)
			assert.Equal(t, []string{tt.field}, fieldNames(t, ev.Validate()))
		})
	}
}

func TestValidate_LengthLimitsCountCharacters(t *testing.T) {
	ev := validEvent()
	ev.SiteID = strings.Repeat("é", MaxIDLength)
	ev.SnapshotRef = StringPtr(strings.Repeat("ü", MaxSnapshotRefLength))
	ev.Extra = map[string]any{"n": json.Number("1"), "list": []any{"a", 2.0, nil}}
	assert.NoError(t, ev.Validate())
}

func TestValidationError_Error(t *testing.T) {
	ve := &ValidationError{}
	assert.Equal(t, "no validation errors", ve.Error())
	assert.False(t, ve.HasErrors())

	ve.add(FieldSiteID, reasonRequired)
	ve.add(FieldConfidence, "must be a number")
	err := ve.err()
	require.Error(t, err)
	assert.Equal(t, "invalid event: confidence: must be a number; site_id: field required", err.Error())
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	p := StringPtr("zone-a")
	require.NotNil(t, p)
	assert.Equal(t, "zone-a", *p)
}
