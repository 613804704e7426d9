// Package sqlite is the relational system of record on modernc.org/sqlite
// (cgo-free). It renders relational queries to SQL and classifies driver
// errors into db.Error.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kailas-cloud/venuedex/internal/db"
)

// Store wraps a sqlite database handle.
type Store struct {
	db   *sql.DB
	path string
}

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// Open opens (or creates) the database at path, applies pragmas and runs
// the given DDL statements. Statements must be idempotent.
func Open(ctx context.Context, path string, ddl ...string) (*Store, error) {
	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		// every connection would get its own empty database
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	for _, stmt := range ddl {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("schema failed: %w", err)
		}
	}
	return &Store{db: conn, path: path}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(path)
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify(db.OpPing, err)
	}
	return nil
}

// Query runs a statement returning rows.
func (s *Store) Query(ctx context.Context, st Statement) (*sql.Rows, error) {
	rows, err := s.db.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, classify(db.OpSQLQuery, err)
	}
	return rows, nil
}

// QueryInt runs a statement returning a single integer, such as a COUNT.
func (s *Store) QueryInt(ctx context.Context, st Statement) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, st.SQL, st.Args...).Scan(&n); err != nil {
		return 0, classify(db.OpSQLQuery, err)
	}
	return n, nil
}

// Exec runs a statement outside a transaction.
func (s *Store) Exec(ctx context.Context, st Statement) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, classify(db.OpSQLExec, err)
	}
	return res, nil
}

// Tx runs fn in a transaction. fn's error rolls back; otherwise the
// transaction commits.
func (s *Store) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(db.OpSQLExec, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(db.OpSQLExec, err)
	}
	return nil
}

// Classify wraps a driver error for op. Exported for callers running their
// own statements inside Tx.
func Classify(op string, err error) error {
	return classify(op, err)
}

// classify marks busy/locked databases and deadlines as temporary.
// sql.ErrNoRows passes through unchanged.
func classify(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	temporary := errors.Is(err, context.DeadlineExceeded)
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			temporary = true
		}
	}
	return &db.Error{Op: op, Err: err, Temporary: temporary}
}
