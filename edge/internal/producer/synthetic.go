package producer

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/quieteye/quieteye-stack/common/events"
)

// Synthetic generates plausible detections for exercising a backend
// without cameras attached.
type Synthetic struct {
	producer *Producer
	faker    *gofakeit.Faker
}

// NewSynthetic returns a generator over p's cameras. A zero seed picks a
// random one.
func NewSynthetic(p *Producer, seed int64) *Synthetic {
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Synthetic{producer: p, faker: gofakeit.New(seed)}
}

// Detection returns a random detection. When spread is positive the
// detection time is placed uniformly within the last spread.
func (s *Synthetic) Detection(spread time.Duration) (Detection, error) {
	cams := s.producer.site.Cameras
	if len(cams) == 0 {
		return Detection{}, fmt.Errorf("no cameras configured for site %s", s.producer.site.SiteID)
	}

	f := s.faker
	cam := cams[f.IntRange(0, len(cams)-1)]
	types := events.EventTypes()
	eventType := types[f.IntRange(0, len(types)-1)]

	d := Detection{
		CameraID:    cam.CameraID,
		EventType:   eventType,
		Confidence:  float64(f.IntRange(50, 100)) / 100,
		SnapshotRef: fmt.Sprintf("snapshots/%s/%s.jpg", cam.CameraID, f.UUID()),
		Extra: map[string]any{
			"synthetic": true,
			"bbox":      []int{f.IntRange(0, 600), f.IntRange(0, 400), f.IntRange(640, 1280), f.IntRange(400, 720)},
		},
	}

	if len(cam.Zones) > 0 {
		d.Zone = cam.Zones[f.IntRange(0, len(cam.Zones)-1)]
	}
	if eventType == events.AttendanceCheckin {
		d.Extra["person"] = f.Name()
	}
	if spread > 0 {
		d.At = s.producer.now().Add(-time.Duration(f.Float64Range(0, float64(spread))))
	}
	return d, nil
}

// Event returns a random detection already built into an event.
func (s *Synthetic) Event(spread time.Duration) (*events.Event, error) {
	d, err := s.Detection(spread)
	if err != nil {
		return nil, err
	}
	return s.producer.Build(d)
}
