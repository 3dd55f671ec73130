package repository

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/quieteye/quieteye-stack/common/events"
)

// InMemoryRepository keeps events in process memory. It honours the same
// ordering and ID contract as PostgresRepository and is meant for local
// development and tests only.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events []*events.StoredEvent
	nextID int64
}

var _ Repository = (*InMemoryRepository)(nil)

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1}
}

func (r *InMemoryRepository) InsertEvent(ctx context.Context, ev *events.Event) (*events.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := &events.StoredEvent{ID: r.nextID, Event: copyEvent(ev)}
	r.nextID++
	r.events = append(r.events, stored)

	out := *stored
	out.Event = copyEvent(&stored.Event)
	return &out, nil
}

func (r *InMemoryRepository) ListRecent(ctx context.Context, limit int) ([]*events.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	sorted := slices.Clone(r.events)
	r.mu.RUnlock()

	slices.SortFunc(sorted, func(a, b *events.StoredEvent) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})

	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	result := make([]*events.StoredEvent, len(sorted))
	for i, s := range sorted {
		result[i] = &events.StoredEvent{ID: s.ID, Event: copyEvent(&s.Event)}
	}
	return result, nil
}

func (r *InMemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *InMemoryRepository) Close() {}

// Len returns the number of stored events.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

func copyEvent(ev *events.Event) events.Event {
	c := *ev
	if ev.Zone != nil {
		z := *ev.Zone
		c.Zone = &z
	}
	if ev.SnapshotRef != nil {
		s := *ev.SnapshotRef
		c.SnapshotRef = &s
	}
	c.Extra = maps.Clone(ev.Extra)
	if c.Extra == nil {
		c.Extra = map[string]any{}
	}
	return c
}
