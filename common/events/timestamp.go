package events

import (
	"fmt"
	"strings"
	"time"
)

// Precision is the resolution events are stored with. PostgreSQL timestamptz
// keeps microseconds, so normalizing to the same precision keeps the value
// returned from ingestion equal to the value read back later.
const Precision = time.Microsecond

// Layouts without a zone designator. Values in these layouts are taken to be
// UTC wall-clock time already.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Layouts carrying an offset that RFC 3339 parsing does not accept.
var offsetLayouts = []string{
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
}

// ParseTimestamp parses a producer-supplied timestamp and returns it in UTC.
// Offset-qualified values are converted to UTC; naive values are labelled
// UTC without any arithmetic.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return NormalizeTimestamp(t), nil
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NormalizeTimestamp(t), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return NormalizeTimestamp(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format %q", s)
}

// NormalizeTimestamp returns the same instant expressed in UTC at storage
// precision.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(Precision)
}

// Normalizer canonicalizes event timestamps, substituting the current time
// when the producer supplied none.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer returns a Normalizer using now as its clock. A nil now uses
// time.Now.
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize returns t in UTC, or the current UTC time if t is zero.
func (n *Normalizer) Normalize(t time.Time) time.Time {
	if t.IsZero() {
		t = n.now()
	}
	return NormalizeTimestamp(t)
}
