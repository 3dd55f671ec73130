package messaging

import "strings"

// Subjects follow the pattern {product}.{resource}.{action}[.{qualifier}].
const (
	// SubjectEventsIngested carries every event after it is committed.
	SubjectEventsIngested = "quieteye.events.ingested"

	// SubjectEventsIngestedAll matches SubjectEventsIngested and all of its
	// per-type subjects.
	SubjectEventsIngestedAll = SubjectEventsIngested + ".>"
)

// Header keys set on published messages.
const (
	HeaderEventType = "QuietEye-Event-Type"
	HeaderSiteID    = "QuietEye-Site-ID"
	HeaderRequestID = "X-Request-ID"
)

// IngestedSubject returns the per-type subject for an ingested event.
// Example: quieteye.events.ingested.fire_detected
func IngestedSubject(eventType string) string {
	if eventType == "" {
		return SubjectEventsIngested
	}
	return SubjectEventsIngested + "." + strings.ToLower(eventType)
}
