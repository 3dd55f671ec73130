package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quieteye/quieteye-stack/common/database"
	"github.com/quieteye/quieteye-stack/common/events"
)

const eventColumns = `id, event_type, "timestamp", site_id, device_id, camera_id, zone, confidence, snapshot_ref, extra`

const insertEventSQL = `
	INSERT INTO events (event_type, "timestamp", site_id, device_id, camera_id, zone, confidence, snapshot_ref, extra)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING ` + eventColumns

const listRecentSQL = `
	SELECT ` + eventColumns + `
	FROM events
	ORDER BY "timestamp" DESC, id DESC
	LIMIT $1`

// PoolConfig tunes the connection pool. Zero values keep pgx defaults.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(ctx context.Context, connString string, pc PoolConfig) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if pc.MaxConns > 0 {
		config.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		config.MinConns = pc.MinConns
	}
	if pc.MaxConnLifetime > 0 {
		config.MaxConnLifetime = pc.MaxConnLifetime
	}
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := database.PingContext(ctx)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// InsertEvent writes ev inside its own transaction. Any failure before
// COMMIT rolls back, so no partial row is ever visible.
func (r *PostgresRepository) InsertEvent(ctx context.Context, ev *events.Event) (*events.StoredEvent, error) {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	extra := ev.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extra: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op once committed.
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	row := tx.QueryRow(ctx, insertEventSQL,
		string(ev.EventType),
		ev.Timestamp,
		ev.SiteID,
		ev.DeviceID,
		ev.CameraID,
		ev.Zone,
		ev.Confidence,
		ev.SnapshotRef,
		string(extraJSON),
	)
	stored, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit event: %w", err)
	}

	return stored, nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*events.StoredEvent, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, listRecentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	result := make([]*events.StoredEvent, 0, limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		result = append(result, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	ctx, cancel := database.PingContext(ctx)
	defer cancel()

	var one int
	if err := r.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

func scanEvent(row pgx.Row) (*events.StoredEvent, error) {
	var (
		ev        events.StoredEvent
		eventType string
		extraJSON []byte
	)

	err := row.Scan(
		&ev.ID,
		&eventType,
		&ev.Timestamp,
		&ev.SiteID,
		&ev.DeviceID,
		&ev.CameraID,
		&ev.Zone,
		&ev.Confidence,
		&ev.SnapshotRef,
		&extraJSON,
	)
	if err != nil {
		return nil, err
	}

	ev.EventType = events.EventType(eventType)
	ev.Timestamp = ev.Timestamp.UTC()
	ev.Extra = map[string]any{}
	if len(extraJSON) > 0 {
		if ev.Extra, err = events.DecodeExtra(extraJSON); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extra: %w", err)
		}
	}

	return &ev, nil
}
