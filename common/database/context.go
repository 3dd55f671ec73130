package database

import (
	"context"
	"time"
)

// Standard timeout durations for database operations.
const (
	// DefaultQueryTimeout bounds read queries.
	DefaultQueryTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds insert transactions.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultPingTimeout bounds reachability probes. Probes run on the
	// health path and must answer quickly even when the database hangs.
	DefaultPingTimeout = 2 * time.Second
)

// QueryContext creates a context with DefaultQueryTimeout.
// Use this for SELECT queries and read operations.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultQueryTimeout)
}

// WriteContext creates a context with DefaultWriteTimeout.
// Use this for INSERT transactions.
func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultWriteTimeout)
}

// PingContext creates a context with DefaultPingTimeout.
func PingContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultPingTimeout)
}
