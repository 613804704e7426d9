// Package query holds the backend query builders. Each backend gets its own
// builder; the calling use-case picks one explicitly.
package query

import "github.com/kailas-cloud/venuedex/internal/domain/query/spec"

// Builder translates a normalized FilterSpec into a backend-specific query.
// Implementations are pure: no I/O, no shared state.
type Builder[Q any] interface {
	Build(s spec.FilterSpec) (Q, error)
}
