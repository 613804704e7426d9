package search

import (
	"fmt"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/domain/geo"
	"github.com/kailas-cloud/venuedex/internal/domain/query/page"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
)

// Document is what decoding needs from an indexed document type.
type Document[T any] interface {
	Position() geo.Point
	WithoutRelations() T
}

// Decoder turns raw index hits into typed result pages.
type Decoder[T Document[T]] struct {
	Unmarshal func([]byte) (T, error)
	// MaxWindow caps how far a next cursor may point; 0 disables the cap.
	MaxWindow int
}

// Decode shapes res into a page of hits, keeping the order the index
// returned them in.
//
// DistanceMeters is attached whenever the FilterSpec has a geo constraint,
// whatever the sort. MaxScore is the best score on the page, 0 without a
// term.
func (d Decoder[T]) Decode(res *db.SearchResult, q db.SearchQuery, s spec.FilterSpec) (page.ResultPage[page.Hit[T]], error) {
	hits := make([]page.Hit[T], 0, len(res.Entries))
	g := s.Geo()

	var maxScore float64
	for _, e := range res.Entries {
		raw, ok := e.Fields[db.JSONRootField]
		if !ok {
			return page.ResultPage[page.Hit[T]]{}, fmt.Errorf("hit %s: missing document body", e.Key)
		}
		doc, err := d.Unmarshal([]byte(raw))
		if err != nil {
			return page.ResultPage[page.Hit[T]]{}, fmt.Errorf("hit %s: %w", e.Key, err)
		}
		if !s.IncludeRelations() {
			doc = doc.WithoutRelations()
		}

		h := page.Hit[T]{Document: doc}
		if s.Term() != "" {
			h.Score = e.Score
			maxScore = max(maxScore, e.Score)
		}
		if g != nil {
			dist := geo.Distance(g.Center, doc.Position())
			h.DistanceMeters = &dist
		}
		hits = append(hits, h)
	}

	total := res.Total
	reachable := total
	if d.MaxWindow > 0 && reachable > d.MaxWindow {
		reachable = d.MaxWindow
	}

	var out page.ResultPage[page.Hit[T]]
	p := s.Page()
	if p.Mode == spec.CursorMode {
		_, next := page.Next(q.Offset, len(hits), reachable)
		out = page.Cursor(hits, total, p.Cursor, q.Limit, next)
	} else {
		out = page.Offset(hits, total, q.Offset, q.Limit)
		out.Meta.HasMore, out.Meta.NextCursor = page.Next(q.Offset, len(hits), reachable)
	}
	out.MaxScore = &maxScore
	return out, nil
}
