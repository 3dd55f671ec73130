// Package repository persists events. The store is append-only: events are
// inserted and read, never updated or deleted.
package repository

import (
	"context"

	"github.com/quieteye/quieteye-stack/common/events"
)

type Repository interface {
	// InsertEvent stores ev in a single atomic write and returns it with the
	// store-assigned ID. ev must already be validated and normalized.
	InsertEvent(ctx context.Context, ev *events.Event) (*events.StoredEvent, error)

	// ListRecent returns at most limit events, most recent timestamp first.
	ListRecent(ctx context.Context, limit int) ([]*events.StoredEvent, error)

	// Ping checks that the store answers a trivial query.
	Ping(ctx context.Context) error

	Close()
}
