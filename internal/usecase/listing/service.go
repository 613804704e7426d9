// Package listing serves venue lists straight from the system of record,
// for views that need no ranking.
package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/venuedex/internal/domain/query/page"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	"github.com/kailas-cloud/venuedex/internal/metrics"
	"github.com/kailas-cloud/venuedex/internal/query/relational"
)

const backend = "sqlite"

// Page is one page of venues.
type Page = page.ResultPage[domvenue.Venue]

// Service lists venues with offset or keyset pagination.
type Service struct {
	store   VenueStore
	builder *relational.Builder
	surface spec.Surface
}

// New creates a listing service.
func New(store VenueStore, defaultLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &Service{
		store:   store,
		builder: relational.NewBuilder(domvenue.Schema, domvenue.TextFields),
		surface: domvenue.ListingSurface(defaultLimit),
	}
}

// Surface returns the request surface FilterSpecs must be normalized against.
func (s *Service) Surface() spec.Surface { return s.surface }

// List returns one page of venues matching fs.
func (s *Service) List(ctx context.Context, fs spec.FilterSpec) (Page, error) {
	start := time.Now()
	res, err := s.list(ctx, fs)
	metrics.SearchQueriesTotal.WithLabelValues(backend, metrics.Outcome(err)).Inc()
	metrics.SearchQueryDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	return res, err
}

func (s *Service) list(ctx context.Context, fs spec.FilterSpec) (Page, error) {
	q, err := s.builder.Build(fs)
	if err != nil {
		return Page{}, err
	}
	total, err := s.store.Count(ctx, q.Where)
	if err != nil {
		return Page{}, fmt.Errorf("count venues: %w", err)
	}

	p := fs.Page()
	if p.Mode != spec.CursorMode {
		vs, err := s.store.FindMany(ctx, q)
		if err != nil {
			return Page{}, fmt.Errorf("list venues: %w", err)
		}
		out := page.Offset(vs, total, q.Skip, q.Take)
		if out.Meta.HasMore {
			// continue in keyset mode from the last row of this page
			c := page.EncodeKey(vs[len(vs)-1].ID)
			out.Meta.NextCursor = &c
		}
		return out, nil
	}

	if q.After != nil {
		ok, err := s.store.Exists(ctx, q.After.Value)
		if err != nil {
			return Page{}, fmt.Errorf("resolve cursor: %w", err)
		}
		if !ok {
			// the anchor row is gone; restart from the first page
			q.After, q.Skip = nil, 0
		}
	}

	limit := q.Take
	q.Take = limit + 1
	vs, err := s.store.FindMany(ctx, q)
	if err != nil {
		return Page{}, fmt.Errorf("list venues: %w", err)
	}

	var next *string
	if len(vs) > limit {
		vs = vs[:limit]
		c := page.EncodeKey(vs[limit-1].ID)
		next = &c
	}
	return page.Cursor(vs, total, p.Cursor, limit, next), nil
}
