package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/quieteye/quieteye-stack/common/events"
	"github.com/quieteye/quieteye-stack/common/logging"
	"github.com/quieteye/quieteye-stack/common/messaging"
	"github.com/quieteye/quieteye-stack/common/middleware"
	"github.com/quieteye/quieteye-stack/ingest/internal/metrics"
	"github.com/quieteye/quieteye-stack/ingest/internal/repository"
)

// IngestService validates, normalizes and persists events.
type IngestService struct {
	repo       repository.Repository
	normalizer *events.Normalizer
	publisher  messaging.Publisher
	logger     *logging.Logger
}

type Option func(*IngestService)

// WithClock overrides the clock used for events that arrive without a
// timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *IngestService) {
		s.normalizer = events.NewNormalizer(now)
	}
}

// WithPublisher announces every committed event on the message bus.
func WithPublisher(p messaging.Publisher) Option {
	return func(s *IngestService) {
		s.publisher = p
	}
}

// WithLogger sets the logger. The default is logging.Default().
func WithLogger(l *logging.Logger) Option {
	return func(s *IngestService) {
		s.logger = l
	}
}

func NewIngestService(repo repository.Repository, opts ...Option) *IngestService {
	s := &IngestService{
		repo:       repo,
		normalizer: events.NewNormalizer(nil),
		publisher:  messaging.NoopPublisher{},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest validates ev, canonicalizes its timestamp to UTC and stores it in
// one atomic write. It returns *events.ValidationError without touching the
// store when ev is invalid, and *StorageError when the write fails. Every
// call that succeeds creates a new event; identical payloads are not
// deduplicated.
func (s *IngestService) Ingest(ctx context.Context, ev *events.Event) (*events.StoredEvent, error) {
	if ev == nil {
		return nil, &events.ValidationError{Fields: []events.FieldError{{Field: "event", Reason: "missing"}}}
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	normalized := *ev
	normalized.Timestamp = s.normalizer.Normalize(ev.Timestamp)
	if normalized.Extra == nil {
		normalized.Extra = map[string]any{}
	}

	start := time.Now()
	stored, err := s.repo.InsertEvent(ctx, &normalized)
	elapsed := time.Since(start)
	metrics.StorageDuration.WithLabelValues("insert").Observe(elapsed.Seconds())
	if err != nil {
		metrics.StorageErrors.WithLabelValues("insert").Inc()
		return nil, &StorageError{Op: "insert", Err: err}
	}

	metrics.EventsIngested.WithLabelValues(string(stored.EventType)).Inc()
	s.logger.InfoContext(ctx, "event stored",
		logging.EventID(stored.ID),
		logging.EventType(string(stored.EventType)),
		logging.SiteID(stored.SiteID),
		logging.DeviceID(stored.DeviceID),
		logging.CameraID(stored.CameraID),
		logging.Duration(elapsed),
	)

	s.announce(ctx, stored)
	return stored, nil
}

// announce publishes a committed event. The row is already durable, so a
// failure here is logged and counted but never reported to the caller.
func (s *IngestService) announce(ctx context.Context, stored *events.StoredEvent) {
	data, err := json.Marshal(stored)
	if err != nil {
		metrics.PublishErrors.Inc()
		s.logger.ErrorContext(ctx, "failed to encode event notification", logging.Error(err))
		return
	}

	msg := &messaging.Message{
		Subject: messaging.IngestedSubject(string(stored.EventType)),
		Data:    data,
		Metadata: map[string]string{
			messaging.HeaderEventType: string(stored.EventType),
			messaging.HeaderSiteID:    stored.SiteID,
		},
	}
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		msg.Metadata[messaging.HeaderRequestID] = reqID
	}

	if err := s.publisher.PublishMsg(context.WithoutCancel(ctx), msg); err != nil {
		metrics.PublishErrors.Inc()
		s.logger.WarnContext(ctx, "failed to publish event notification",
			logging.EventID(stored.ID),
			slog.String("subject", msg.Subject),
			logging.Error(err),
		)
		return
	}
	s.logger.DebugContext(ctx, "event notification published",
		logging.EventID(stored.ID),
		slog.String("subject", msg.Subject),
	)
}
