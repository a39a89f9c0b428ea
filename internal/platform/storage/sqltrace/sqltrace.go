// Package sqltrace instruments a database handle at the statement execution
// boundary. Every executed statement is timed wall-clock and reported to a
// Recorder together with its metered operation.
package sqltrace

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Recorder receives one observation per executed statement.
type Recorder interface {
	ObserveQuery(operation string, duration time.Duration)
}

// Operation extracts the metered operation from a SQL statement: the first
// whitespace-delimited token, lowercased. The second return is false for
// statements outside the metered set.
func Operation(query string) (string, bool) {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "", false
	}
	op := strings.ToLower(fields[0])
	switch op {
	case "select", "insert", "update", "delete":
		return op, true
	}
	return "", false
}

// DB wraps an open handle and reports statement timings to a Recorder.
// A nil Recorder disables reporting.
type DB struct {
	db  *sql.DB
	rec Recorder
}

// Wrap instruments an open handle.
func Wrap(db *sql.DB, rec Recorder) *DB {
	return &DB{db: db, rec: rec}
}

func (d *DB) observe(query string, start time.Time) {
	if d.rec == nil {
		return
	}
	op, ok := Operation(query)
	if !ok {
		return
	}
	d.rec.ObserveQuery(op, time.Since(start))
}

// ExecContext runs a statement and reports its duration, on failure included.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := d.db.ExecContext(ctx, query, args...)
	d.observe(query, start)
	return res, err
}

// QueryContext runs a query and reports its duration. Row iteration happens
// outside the timed window.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.db.QueryContext(ctx, query, args...)
	d.observe(query, start)
	return rows, err
}

// QueryRowContext runs a single-row query and reports its duration.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := d.db.QueryRowContext(ctx, query, args...)
	d.observe(query, start)
	return row
}

// PingContext verifies the connection. Pings carry no statement text and are
// not reported.
func (d *DB) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Stats returns the pool statistics of the underlying handle.
func (d *DB) Stats() sql.DBStats {
	return d.db.Stats()
}

// Unwrap returns the underlying handle.
func (d *DB) Unwrap() *sql.DB {
	return d.db
}

// Close releases the underlying handle.
func (d *DB) Close() error {
	return d.db.Close()
}
