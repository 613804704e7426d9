package db

import (
	"context"
	"errors"
	"net"
)

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// Op constants name the failing backend command for error context.
const (
	OpPing        = "PING"
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpAggregate   = "FT.AGGREGATE"
	OpJSONSet     = "JSON.SET"
	OpJSONGet     = "JSON.GET"
	OpDel         = "DEL"
	OpExists      = "EXISTS"
	OpGet         = "GET"
	OpSet         = "SET"
	OpSQLQuery    = "SQL.QUERY"
	OpSQLExec     = "SQL.EXEC"
)

// Error wraps an underlying error with the operation name for diagnostics.
// Temporary marks transport-level failures (timeouts, refused connections)
// that may succeed on retry, as opposed to server-side command errors.
type Error struct {
	Op        string
	Err       error
	Temporary bool
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// IsTemporary reports whether err is a retryable transport failure.
func IsTemporary(err error) bool {
	var de *Error
	if errors.As(err, &de) && de.Temporary {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
