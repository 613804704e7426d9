package db

import (
	"errors"
	"math"
)

// JSONRootField is the return field carrying the whole JSON document.
const JSONRootField = "$"

// ClauseKind enumerates filter clause shapes understood by every driver.
type ClauseKind int

const (
	// ClauseTag matches when the tag attribute equals any of Values.
	ClauseTag ClauseKind = iota
	// ClauseTagContains matches when a tag value contains Values[0], case-insensitively.
	ClauseTagContains
	// ClauseNumeric matches when the numeric attribute falls in any of Ranges.
	ClauseNumeric
)

// NumericRange is an inclusive range; a nil bound is open.
type NumericRange struct {
	Min *float64
	Max *float64
}

// Clause is one ANDed filter over an index attribute.
type Clause struct {
	Field  string
	Kind   ClauseKind
	Values []string
	Ranges []NumericRange
}

// GeoFilter restricts hits to a circle around a point.
type GeoFilter struct {
	Field        string
	Lon          float64
	Lat          float64
	RadiusMeters float64
}

// SearchQuery is the backend-neutral input of Searcher.Search.
type SearchQuery struct {
	IndexName string
	// Text is the raw free-text term; empty matches every document.
	Text       string
	TextFields []string
	Clauses    []Clause
	Geo        *GeoFilter

	// SortBy names a sortable attribute. Empty with SortByDistance false
	// means relevance.
	SortBy         string
	SortByDistance bool
	SortDesc       bool
	// ThenBy is a descending secondary key applied where the driver can.
	ThenBy string

	Offset int
	Limit  int
}

// Validate checks the query before it reaches a driver.
func (q *SearchQuery) Validate() error {
	if q.IndexName == "" {
		return errors.New("index name is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return errors.New("offset and limit must be non-negative")
	}
	if q.SortByDistance && q.Geo == nil {
		return errors.New("distance sort requires a geo filter")
	}
	if q.SortBy != "" && q.SortByDistance {
		return errors.New("sort by attribute and distance are exclusive")
	}
	if g := q.Geo; g != nil {
		if g.Field == "" || g.RadiusMeters <= 0 || math.IsNaN(g.RadiusMeters) {
			return errors.New("geo filter requires a field and a positive radius")
		}
	}
	for i := range q.Clauses {
		c := &q.Clauses[i]
		if c.Field == "" {
			return errors.New("clause field is required")
		}
		switch c.Kind {
		case ClauseTag, ClauseTagContains:
			if len(c.Values) == 0 {
				return errors.New("tag clause on " + c.Field + " requires values")
			}
		case ClauseNumeric:
			if len(c.Ranges) == 0 {
				return errors.New("numeric clause on " + c.Field + " requires ranges")
			}
		}
	}
	return nil
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// IndexInfo is the subset of FT.INFO exposed as diagnostics.
type IndexInfo struct {
	Name        string
	NumDocs     int
	NumRecords  int
	MemoryBytes int64
	Indexing    bool
	Failures    int
}
