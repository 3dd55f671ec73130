package service

import (
	"context"
	"time"

	"github.com/quieteye/quieteye-stack/common/events"
	"github.com/quieteye/quieteye-stack/ingest/internal/metrics"
	"github.com/quieteye/quieteye-stack/ingest/internal/repository"
)

// Limits for ListRecent.
const (
	DefaultLimit = 50
	MinLimit     = 1
	MaxLimit     = 500
)

// QueryService reads stored events.
type QueryService struct {
	repo repository.Repository
}

func NewQueryService(repo repository.Repository) *QueryService {
	return &QueryService{repo: repo}
}

// ValidateLimit returns *LimitError when limit is outside [MinLimit, MaxLimit].
// Out-of-range values are rejected, never clamped.
func ValidateLimit(limit int) error {
	if limit < MinLimit || limit > MaxLimit {
		return &LimitError{Limit: limit}
	}
	return nil
}

// ListRecent returns at most limit events ordered by timestamp, most recent
// first. The store is not consulted when limit is out of range.
func (s *QueryService) ListRecent(ctx context.Context, limit int) ([]*events.StoredEvent, error) {
	if err := ValidateLimit(limit); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.repo.ListRecent(ctx, limit)
	metrics.StorageDuration.WithLabelValues("list").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StorageErrors.WithLabelValues("list").Inc()
		return nil, &StorageError{Op: "list", Err: err}
	}
	if result == nil {
		result = []*events.StoredEvent{}
	}
	return result, nil
}
