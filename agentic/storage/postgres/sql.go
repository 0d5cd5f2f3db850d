package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SQLExecutor is the subset of *sql.DB and *sql.Tx the SQL writer needs.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLWriter is Writer for database/sql handles.
type SQLWriter struct {
	db    SQLExecutor
	table string
}

// OpenSQL opens a database/sql handle with the lib/pq driver.
func OpenSQL(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return db, nil
}

// NewSQLWriter creates a SQLWriter. An empty table uses DefaultTable.
func NewSQLWriter(db SQLExecutor, table string) *SQLWriter {
	if table == "" {
		table = DefaultTable
	}
	return &SQLWriter{db: db, table: table}
}

func (w *SQLWriter) ident() string {
	return pq.QuoteIdentifier(w.table)
}

// Migrate creates the body table if it does not exist.
func (w *SQLWriter) Migrate(ctx context.Context) error {
	if _, err := w.db.ExecContext(ctx, createTableSQL(w.ident())); err != nil {
		return fmt.Errorf("postgres: migrate %s: %w", w.table, err)
	}
	return nil
}

// Write inserts content under path, replacing any body already stored there.
func (w *SQLWriter) Write(ctx context.Context, path string, content []byte) error {
	if !json.Valid(content) {
		return fmt.Errorf("postgres: body for %s is not valid JSON", path)
	}
	res, err := w.db.ExecContext(ctx, upsertSQL(w.ident()), uuid.New().String(), path, SessionFromPath(path), string(content))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("postgres: write %s: %s (%s): %w", path, pqErr.Code.Name(), pqErr.Code, err)
		}
		return fmt.Errorf("postgres: write %s: %w", path, err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("postgres: write %s: %d rows affected", path, n)
	}
	return nil
}

// Load returns the body stored under path.
func (w *SQLWriter) Load(ctx context.Context, path string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT body FROM %s WHERE path = $1`, w.ident())
	var body []byte
	if err := w.db.QueryRowContext(ctx, query, path).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("postgres: load %s: %w", path, err)
	}
	return body, nil
}
