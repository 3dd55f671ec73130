// Package events defines the canonical QuietEye event schema shared by the
// edge producers and the ingest service. Both sides validate against the
// rules in this package, so there is exactly one definition of what a valid
// event looks like.
package events

import (
	"slices"
	"strings"
)

// EventType is the closed set of detections an edge device may report.
type EventType string

const (
	AfterHoursPresence      EventType = "AFTER_HOURS_PRESENCE"
	PersonInRestrictedZone  EventType = "PERSON_IN_RESTRICTED_ZONE"
	SmokingInRestrictedZone EventType = "SMOKING_IN_RESTRICTED_ZONE"
	FireDetected            EventType = "FIRE_DETECTED"
	FireInRestrictedZone    EventType = "FIRE_IN_RESTRICTED_ZONE"
	AttendanceCheckin       EventType = "ATTENDANCE_CHECKIN"
)

var eventTypes = []EventType{
	AfterHoursPresence,
	PersonInRestrictedZone,
	SmokingInRestrictedZone,
	FireDetected,
	FireInRestrictedZone,
	AttendanceCheckin,
}

// EventTypes returns every accepted event type.
func EventTypes() []EventType {
	return slices.Clone(eventTypes)
}

// Valid reports whether t is a member of the closed set.
func (t EventType) Valid() bool {
	return slices.Contains(eventTypes, t)
}

func (t EventType) String() string {
	return string(t)
}

func eventTypeList() string {
	names := make([]string, len(eventTypes))
	for i, t := range eventTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
