package chi

import (
	"context"

	"github.com/kailas-cloud/venuedex/internal/domain/batch"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	healthuc "github.com/kailas-cloud/venuedex/internal/usecase/health"
	listinguc "github.com/kailas-cloud/venuedex/internal/usecase/listing"
	searchuc "github.com/kailas-cloud/venuedex/internal/usecase/search"
)

// SearchService is the index-backed venue search gateway.
type SearchService interface {
	Surface() spec.Surface
	Search(ctx context.Context, fs spec.FilterSpec) (searchuc.Page, error)
	GetByID(ctx context.Context, id string) (*domvenue.Document, error)
	IndexOne(ctx context.Context, id string) (string, error)
	Stats(ctx context.Context) (searchuc.Stats, error)
}

// ListingService is the relational venue listing.
type ListingService interface {
	Surface() spec.Surface
	List(ctx context.Context, fs spec.FilterSpec) (listinguc.Page, error)
}

// VenueService handles venue writes.
type VenueService interface {
	Create(ctx context.Context, v domvenue.Venue) (*domvenue.Venue, error)
	Update(ctx context.Context, id string, v domvenue.Venue) (*domvenue.Venue, error)
	Get(ctx context.Context, id string) (*domvenue.Venue, error)
	Delete(ctx context.Context, id string) error
}

// ReindexService rebuilds the index.
type ReindexService interface {
	ReindexAll(ctx context.Context, filters map[string]any) (batch.Report, error)
}

// HealthService aggregates backend health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
