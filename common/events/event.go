package events

import "time"

// Event is one detection reported by an edge device, before it is persisted.
// A zero Timestamp means the producer did not supply one.
type Event struct {
	EventType   EventType      `json:"event_type"`
	Timestamp   time.Time      `json:"timestamp,omitzero"`
	SiteID      string         `json:"site_id"`
	DeviceID    string         `json:"device_id"`
	CameraID    string         `json:"camera_id"`
	Zone        *string        `json:"zone"`
	Confidence  float64        `json:"confidence"`
	SnapshotRef *string        `json:"snapshot_ref"`
	Extra       map[string]any `json:"extra"`
}

// StoredEvent is the canonical persisted form of an Event. ID is assigned by
// the store exactly once and never changes.
type StoredEvent struct {
	ID int64 `json:"id"`
	Event
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
