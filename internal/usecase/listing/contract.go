package listing

import (
	"context"

	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	"github.com/kailas-cloud/venuedex/internal/query/relational"
)

// VenueStore runs relational venue reads.
type VenueStore interface {
	FindMany(ctx context.Context, q relational.Query) ([]domvenue.Venue, error)
	Count(ctx context.Context, where relational.Predicate) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
}
