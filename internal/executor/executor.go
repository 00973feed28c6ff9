// Package executor runs validator-accepted SQL against the database with a
// wall-clock timeout and a hard row cap, and serializes rows to JSON-safe
// values. Callers must pass only statements the validator accepted; the
// executor re-checks nothing beyond its defensive bounds.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrorKind classifies execution failures.
type ErrorKind string

const (
	ErrTimeout  ErrorKind = "timeout"
	ErrDatabase ErrorKind = "database_error"
)

// Error is a typed execution failure. The message is already sanitized of
// credential-looking substrings and safe to surface.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// AsError extracts a typed executor error, if err carries one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Result holds the rows of a successful execution. Row values are JSON-safe
// scalars: strings, float64, bool, int64, or nil.
type Result struct {
	Rows      []map[string]any
	RowCount  int
	ElapsedMS float64
}

// Config bounds the executor. Zero values fall back to the service defaults.
type Config struct {
	Logger  *slog.Logger
	Timeout time.Duration // wall-clock bound per query (default 30s)
	MaxRows int           // hard row cap (default 1000)
}

// Executor executes accepted statements on a shared connection pool.
type Executor struct {
	db      *sql.DB
	log     *slog.Logger
	timeout time.Duration
	maxRows int
}

// New creates an executor over the given pool.
func New(db *sql.DB, cfg Config) (*Executor, error) {
	if db == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRows == 0 {
		cfg.MaxRows = 1000
	}
	return &Executor{
		db:      db,
		log:     cfg.Logger,
		timeout: cfg.Timeout,
		maxRows: cfg.MaxRows,
	}, nil
}

// Execute runs an accepted SQL statement inside a read-only transaction and
// returns the serialized rows. After the timeout the execution is abandoned
// and the caller sees a timeout error; the connection is returned to the
// pool on every exit path.
func (e *Executor) Execute(ctx context.Context, sqlText string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, e.mapError(ctx, err)
	}
	defer tx.Rollback() //nolint:errcheck // read-only; rollback is release

	// elapsed_ms covers query + fetch, not connection acquisition.
	start := time.Now()
	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, e.mapError(ctx, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, e.mapError(ctx, err)
	}

	out := make([]map[string]any, 0, 16)
	values := make([]any, len(columns))
	scanArgs := make([]any, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	// The validator caps LIMIT, so the row cap should never trip; it is
	// enforced anyway.
	for rows.Next() {
		if len(out) >= e.maxRows {
			if e.log != nil {
				e.log.Warn("row cap reached, truncating result", "maxRows", e.maxRows)
			}
			break
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, e.mapError(ctx, err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = serializeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, e.mapError(ctx, err)
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	if e.log != nil {
		e.log.Info("query executed", "rows", len(out), "elapsedMs", elapsed)
	}
	return &Result{
		Rows:      out,
		RowCount:  len(out),
		ElapsedMS: elapsed,
	}, nil
}

// mapError converts driver failures to typed executor errors. Context
// expiry means the 30s bound was hit; everything else is a database error
// with the driver message redacted.
func (e *Executor) mapError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		if e.log != nil {
			e.log.Warn("query timed out", "timeout", e.timeout)
		}
		return &Error{Kind: ErrTimeout, Message: fmt.Sprintf("query exceeded %s timeout", e.timeout)}
	}
	if e.log != nil {
		e.log.Error("query failed", "error", err)
	}
	return &Error{Kind: ErrDatabase, Message: "database error: " + redactCredentials(err.Error())}
}
