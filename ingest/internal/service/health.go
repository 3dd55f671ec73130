package service

import (
	"context"

	"github.com/quieteye/quieteye-stack/ingest/internal/metrics"
)

// Pinger is the part of the store the health probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthProbe reports whether the event store is reachable.
type HealthProbe struct {
	store Pinger
}

func NewHealthProbe(store Pinger) *HealthProbe {
	return &HealthProbe{store: store}
}

// IsReachable runs a trivial query against the store. Every failure,
// including a missing store or a panicking driver, yields false.
func (p *HealthProbe) IsReachable(ctx context.Context) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
		if ok {
			metrics.DatabaseReachable.Set(1)
		} else {
			metrics.DatabaseReachable.Set(0)
		}
	}()

	if p == nil || p.store == nil {
		return false
	}
	return p.store.Ping(ctx) == nil
}
