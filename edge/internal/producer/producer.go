// Package producer turns camera detections into schema-valid events.
package producer

import (
	"fmt"
	"maps"
	"time"

	"github.com/quieteye/quieteye-stack/common/events"
	"github.com/quieteye/quieteye-stack/edge/internal/siteconfig"
)

// Detection is what a vision pipeline reports for one camera frame.
type Detection struct {
	CameraID    string
	EventType   events.EventType
	Confidence  float64
	Zone        string
	SnapshotRef string
	Extra       map[string]any

	// At overrides the event time. Zero means now.
	At time.Time
}

type Producer struct {
	site *siteconfig.SiteConfig
	now  func() time.Time
}

type Option func(*Producer)

// WithClock replaces time.Now as the source of event timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Producer) { p.now = now }
}

func New(site *siteconfig.SiteConfig, opts ...Option) *Producer {
	p := &Producer{site: site, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Site returns the site the producer reports for.
func (p *Producer) Site() *siteconfig.SiteConfig {
	return p.site
}

// Build assembles an event for d, stamped with the producer's site and
// device, and checks it against the shared schema. A detection without a
// zone inherits the camera's first zone.
func (p *Producer) Build(d Detection) (*events.Event, error) {
	cam, err := p.site.Camera(d.CameraID)
	if err != nil {
		return nil, err
	}

	zone := d.Zone
	if zone == "" {
		zone = cam.DefaultZone()
	}

	ts := d.At
	if ts.IsZero() {
		ts = p.now()
	}

	extra := maps.Clone(d.Extra)
	if extra == nil {
		extra = map[string]any{}
	}

	ev := &events.Event{
		EventType:   d.EventType,
		Timestamp:   events.NormalizeTimestamp(ts),
		SiteID:      p.site.SiteID,
		DeviceID:    p.site.DeviceID,
		CameraID:    cam.CameraID,
		Zone:        events.StringPtr(zone),
		Confidence:  d.Confidence,
		SnapshotRef: events.StringPtr(d.SnapshotRef),
		Extra:       extra,
	}

	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("detection on %s: %w", cam.CameraID, err)
	}
	return ev, nil
}

// WiringTest returns the detection used to prove the edge-to-backend path:
// an after-hours presence on the first configured camera.
func (p *Producer) WiringTest() (Detection, error) {
	if len(p.site.Cameras) == 0 {
		return Detection{}, fmt.Errorf("no cameras configured for site %s", p.site.SiteID)
	}
	return Detection{
		CameraID:   p.site.Cameras[0].CameraID,
		EventType:  events.AfterHoursPresence,
		Confidence: 0.99,
		Extra:      map[string]any{"note": "quieteye edge wiring test"},
	}, nil
}
