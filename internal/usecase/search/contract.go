package search

import (
	"context"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/domain/batch"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	"github.com/kailas-cloud/venuedex/internal/query/relational"
)

// Index is the search-index repository.
type Index interface {
	IndexName() string
	Search(ctx context.Context, q db.SearchQuery) (*db.SearchResult, error)
	Get(ctx context.Context, id string) (domvenue.Document, error)
	Put(ctx context.Context, doc domvenue.Document) error
	PutMany(ctx context.Context, docs []domvenue.Document) []error
	Delete(ctx context.Context, id string) error
	Info(ctx context.Context) (*db.IndexInfo, error)
	LoadReport(ctx context.Context) (*batch.Report, error)
}

// VenueReader reads venues from the system of record.
type VenueReader interface {
	FindUnique(ctx context.Context, id string) (*domvenue.Venue, error)
	Count(ctx context.Context, where relational.Predicate) (int, error)
}
