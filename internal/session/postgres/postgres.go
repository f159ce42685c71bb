// Package postgres provides a PostgreSQL-backed [session.Store] using pgx.
// It suits multi-user deployments where practice history must survive
// restarts; the single-user CLI defaults to the JSON-lines file store.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/parlano/parlano/internal/session"
)

// Schema is the SQL DDL for the practice_attempts table. Execute it via
// [Store.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS practice_attempts (
    id          BIGSERIAL PRIMARY KEY,
    user_id     TEXT NOT NULL DEFAULT '',
    phrase      TEXT NOT NULL,
    score       INT NOT NULL CHECK (score BETWEEN 0 AND 100),
    attempted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_practice_attempts_user ON practice_attempts(user_id, attempted_at DESC);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is a [session.Store] backed by a PostgreSQL database.
type Store struct {
	db DB
}

// Compile-time interface check.
var _ session.Store = (*Store)(nil)

// New creates a Store that uses the given database connection or pool. The
// caller is responsible for calling [Store.Migrate] to ensure the schema
// exists before issuing queries.
func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// practice_attempts table and index if they do not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("session/postgres: migrate: %w", err)
	}
	return nil
}

// Append inserts one practice record.
func (s *Store) Append(ctx context.Context, rec session.Record) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO practice_attempts (user_id, phrase, score, attempted_at) VALUES ($1, $2, $3, $4)`,
		rec.UserID, rec.Phrase, rec.Score, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("session/postgres: append: %w", err)
	}
	return nil
}

// Recent returns up to n of the user's most recent records, oldest first.
func (s *Store) Recent(ctx context.Context, userID string, n int) ([]session.Record, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, phrase, score, attempted_at
		   FROM practice_attempts
		  WHERE user_id = $1
		  ORDER BY attempted_at DESC
		  LIMIT $2`,
		userID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("session/postgres: query recent: %w", err)
	}
	defer rows.Close()

	var records []session.Record
	for rows.Next() {
		var rec session.Record
		if err := rows.Scan(&rec.UserID, &rec.Phrase, &rec.Score, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("session/postgres: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session/postgres: rows: %w", err)
	}

	// Newest-first from the query; callers expect oldest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}
