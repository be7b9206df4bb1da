package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresBackend stores serialized sessions keyed by session id.
type PostgresBackend struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresBackend connects a pgx pool and ensures the schema exists.
func NewPostgresBackend(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure sessions table: %w", err)
	}
	logger.Info("PostgreSQL session storage connected")
	return &PostgresBackend{db: pool, logger: logger}, nil
}

// Load fetches and decodes a session row.
func (pb *PostgresBackend) Load(ctx context.Context, sessionID string) (*Session, error) {
	var data []byte
	err := pb.db.QueryRow(ctx,
		`SELECT data FROM sessions WHERE id = $1`, sessionID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", sessionID, err)
	}
	if s.State == nil {
		s.State = map[string]any{}
	}
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	return &s, nil
}

// Save upserts the serialized session.
func (pb *PostgresBackend) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = pb.db.Exec(ctx, `
		INSERT INTO sessions (id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		s.SessionID, data)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", s.SessionID, err)
	}
	return nil
}

// Delete removes the session row. A missing row is a success.
func (pb *PostgresBackend) Delete(ctx context.Context, sessionID string) error {
	_, err := pb.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// Close shuts down the connection pool.
func (pb *PostgresBackend) Close() {
	pb.db.Close()
}
