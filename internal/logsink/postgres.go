// internal/logsink/postgres.go
package logsink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/das-group/HOSIT/api/schemas"
)

// DBPool abstracts pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	sqlCreateSessions = `
        CREATE TABLE IF NOT EXISTS sessions (
            id TEXT PRIMARY KEY,
            seed TEXT NOT NULL,
            failed BOOLEAN NOT NULL DEFAULT FALSE,
            started_at TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ
        );
    `
	sqlCreateLogEntries = `
        CREATE TABLE IF NOT EXISTS log_entries (
            id TEXT PRIMARY KEY,
            session_id TEXT NOT NULL,
            key TEXT NOT NULL,
            value TEXT NOT NULL,
            screenshot BYTEA,
            created_at TIMESTAMPTZ NOT NULL
        );
    `
	sqlInsertSession = `
        INSERT INTO sessions (id, seed, started_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO NOTHING;
    `
	sqlInsertLogEntry = `
        INSERT INTO log_entries (id, session_id, key, value, screenshot, created_at)
        VALUES ($1, $2, $3, $4, $5, $6);
    `
	sqlMarkSessionFailed = `
        UPDATE sessions SET failed = TRUE, finished_at = $2 WHERE id = $1;
    `
)

// PostgresSink persists entries, including screenshots, to PostgreSQL.
type PostgresSink struct {
	pool DBPool
	log  *zap.Logger
	now  func() time.Time
}

var (
	_ schemas.LogSink     = (*PostgresSink)(nil)
	_ schemas.ErrorMarker = (*PostgresSink)(nil)
)

// NewPostgresSink creates a sink and verifies the connection.
func NewPostgresSink(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresSink, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresSink{
		pool: pool,
		log:  logger.Named("logsink.postgres"),
		now:  time.Now,
	}, nil
}

// OpenPostgres connects a pgx pool to url and wraps it in a sink. The caller
// closes the returned pool.
func OpenPostgres(ctx context.Context, url string, logger *zap.Logger) (*PostgresSink, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	sink, err := NewPostgresSink(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return sink, pool, nil
}

// EnsureSchema creates the tables if they do not exist.
func (p *PostgresSink) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{sqlCreateSessions, sqlCreateLogEntries} {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// StartSession records a new session and the seed it runs with.
func (p *PostgresSink) StartSession(ctx context.Context, sessionID, seed string) error {
	if _, err := p.pool.Exec(ctx, sqlInsertSession, sessionID, seed, p.now().UTC()); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// NewLog implements schemas.LogSink.
func (p *PostgresSink) NewLog(ctx context.Context, e schemas.LogEntry) error {
	var shot interface{}
	if len(e.Screenshot) > 0 {
		shot = e.Screenshot
	}
	if _, err := p.pool.Exec(ctx, sqlInsertLogEntry, e.ID, e.SessionID, e.Key, e.Value, shot, e.CreatedAt); err != nil {
		p.log.Error("Failed to insert log entry", zap.String("key", e.Key), zap.Error(err))
		return fmt.Errorf("failed to insert log entry: %w", err)
	}
	return nil
}

// MarkSessionFailed implements schemas.ErrorMarker.
func (p *PostgresSink) MarkSessionFailed(ctx context.Context, sessionID string) error {
	tag, err := p.pool.Exec(ctx, sqlMarkSessionFailed, sessionID, p.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark session as failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		p.log.Warn("No session row to mark as failed.", zap.String("session_id", sessionID))
	}
	return nil
}
