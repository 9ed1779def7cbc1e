// Package requestlog persists per-request accounting records to SQLite or
// Postgres. Each completed gateway request produces one entry recording the
// parsed identifier, the combinator shape that ran, and token consumption.
package requestlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Entry is one persisted request record.
type Entry struct {
	TraceID          string
	Model            string
	BaseModel        string
	Operation        string
	Approaches       string
	Repeat           int
	CompletionTokens int
	Streamed         bool
	ErrorMessage     string
	CreatedAt        time.Time
}

// Query filters and pages a listing.
type Query struct {
	Limit     int
	Offset    int
	Operation string
	BaseModel string
}

// MaintenanceQuery selects entries for deletion.
type MaintenanceQuery struct {
	Before *time.Time
}

// ListResult is one page of entries plus the unpaged total.
type ListResult struct {
	Data  []Entry
	Total int
}

// Writer persists request records.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

// NoopWriter ignores all writes.
type NoopWriter struct{}

func (NoopWriter) Write(_ context.Context, _ Entry) error { return nil }

// SQLWriter persists entries to SQLite or Postgres.
type SQLWriter struct {
	db      *sql.DB
	dialect string
}

func NewSQLiteWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "reasongate-requests.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite request log writer: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "sqlite"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func NewPostgresWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres request log writer: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "postgres"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLWriter) init() error {
	if err := w.db.Ping(); err != nil {
		return fmt.Errorf("ping %s request log writer: %w", w.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS request_logs (
	id INTEGER PRIMARY KEY,
	trace_id TEXT,
	model TEXT NOT NULL,
	base_model TEXT,
	operation TEXT NOT NULL,
	approaches TEXT,
	repeat INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	streamed INTEGER NOT NULL,
	error_message TEXT,
	created_at TIMESTAMP NOT NULL
);`

	if w.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS request_logs (
	id BIGSERIAL PRIMARY KEY,
	trace_id TEXT,
	model TEXT NOT NULL,
	base_model TEXT,
	operation TEXT NOT NULL,
	approaches TEXT,
	repeat INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	streamed BOOLEAN NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL
);`
	}

	if _, err := w.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize request log schema: %w", err)
	}
	return nil
}

func (w *SQLWriter) Write(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO request_logs(trace_id, model, base_model, operation, approaches, repeat, completion_tokens, streamed, error_message, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if w.dialect == "postgres" {
		query = `INSERT INTO request_logs(trace_id, model, base_model, operation, approaches, repeat, completion_tokens, streamed, error_message, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	}

	_, err := w.db.ExecContext(ctx, query,
		entry.TraceID,
		entry.Model,
		entry.BaseModel,
		entry.Operation,
		entry.Approaches,
		entry.Repeat,
		entry.CompletionTokens,
		entry.Streamed,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write request log: %w", err)
	}
	return nil
}

// List returns a page of entries, newest first.
func (w *SQLWriter) List(ctx context.Context, q Query) (ListResult, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	var (
		where []string
		args  []any
	)
	if q.Operation != "" {
		where = append(where, w.placeholder(len(args)+1, "operation"))
		args = append(args, q.Operation)
	}
	if q.BaseModel != "" {
		where = append(where, w.placeholder(len(args)+1, "base_model"))
		args = append(args, q.BaseModel)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM request_logs"+clause, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count request logs: %w", err)
	}

	limitClause := fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", q.Limit, q.Offset)
	rows, err := w.db.QueryContext(ctx,
		"SELECT trace_id, model, base_model, operation, approaches, repeat, completion_tokens, streamed, error_message, created_at FROM request_logs"+clause+limitClause,
		args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list request logs: %w", err)
	}
	defer rows.Close()

	result := ListResult{Total: total}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.TraceID, &e.Model, &e.BaseModel, &e.Operation, &e.Approaches, &e.Repeat, &e.CompletionTokens, &e.Streamed, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return ListResult{}, fmt.Errorf("scan request log: %w", err)
		}
		result.Data = append(result.Data, e)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("iterate request logs: %w", err)
	}
	return result, nil
}

// Delete removes entries created before the cutoff and reports how many
// were removed. A nil cutoff deletes nothing.
func (w *SQLWriter) Delete(ctx context.Context, q MaintenanceQuery) (int64, error) {
	if q.Before == nil {
		return 0, nil
	}
	query := "DELETE FROM request_logs WHERE created_at < ?"
	if w.dialect == "postgres" {
		query = "DELETE FROM request_logs WHERE created_at < $1"
	}
	res, err := w.db.ExecContext(ctx, query, *q.Before)
	if err != nil {
		return 0, fmt.Errorf("delete request logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete request logs: %w", err)
	}
	return n, nil
}

func (w *SQLWriter) placeholder(n int, col string) string {
	if w.dialect == "postgres" {
		return fmt.Sprintf("%s = $%d", col, n)
	}
	return col + " = ?"
}

func (w *SQLWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}
