package venue

import (
	"context"

	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
)

// Repository is the venue system of record.
type Repository interface {
	Save(ctx context.Context, v *domvenue.Venue) (created bool, err error)
	FindUnique(ctx context.Context, id string) (*domvenue.Venue, error)
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}
