// Package postgres stores compacted transcript bodies in PostgreSQL instead
// of on local disk. Writer uses pgx; SQLWriter works with any database/sql
// handle opened with the lib/pq driver.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable holds persisted bodies.
const DefaultTable = "compact_bodies"

// ErrNotFound is returned by Load when no body is stored under a path.
var ErrNotFound = errors.New("postgres: body not found")

// Executor is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx the writer needs.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Writer stores bodies as JSONB rows keyed by their logical path.
type Writer struct {
	exec  Executor
	table string
}

// Option configures a Writer.
type Option func(*Writer)

// WithTable overrides DefaultTable.
func WithTable(name string) Option {
	return func(w *Writer) {
		if strings.TrimSpace(name) != "" {
			w.table = name
		}
	}
}

// New creates a Writer over exec.
func New(exec Executor, opts ...Option) *Writer {
	w := &Writer{exec: exec, table: DefaultTable}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Connect opens a pgx pool for databaseURL.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

func (w *Writer) ident() string {
	return pgx.Identifier{w.table}.Sanitize()
}

// Migrate creates the body table if it does not exist.
func (w *Writer) Migrate(ctx context.Context) error {
	_, err := w.exec.Exec(ctx, createTableSQL(w.ident()))
	if err != nil {
		return fmt.Errorf("postgres: migrate %s: %w", w.table, err)
	}
	return nil
}

// Write inserts content under path, replacing any body already stored there.
func (w *Writer) Write(ctx context.Context, path string, content []byte) error {
	if !json.Valid(content) {
		return fmt.Errorf("postgres: body for %s is not valid JSON", path)
	}
	query := upsertSQL(w.ident())
	tag, err := w.exec.Exec(ctx, query, uuid.New().String(), path, SessionFromPath(path), content)
	if err != nil {
		return fmt.Errorf("postgres: write %s: %w", path, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("postgres: write %s: %d rows affected", path, tag.RowsAffected())
	}
	return nil
}

// Load returns the body stored under path.
func (w *Writer) Load(ctx context.Context, path string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT body FROM %s WHERE path = $1`, w.ident())
	var body []byte
	if err := w.exec.QueryRow(ctx, query, path).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("postgres: load %s: %w", path, err)
	}
	return body, nil
}

// SessionFromPath extracts the session directory from a body path of the
// form <outputDir>/<session>/compact-*.json.
func SessionFromPath(path string) string {
	dir := filepath.Base(filepath.Dir(filepath.FromSlash(path)))
	if dir == "." || dir == string(filepath.Separator) {
		return ""
	}
	return dir
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	path TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL,
	body JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, table)
}

func upsertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (id, path, session_id, body)
VALUES ($1, $2, $3, $4)
ON CONFLICT (path) DO UPDATE SET body = EXCLUDED.body, created_at = NOW()`, table)
}
