package reindex

import (
	"context"

	"github.com/kailas-cloud/venuedex/internal/domain/batch"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	"github.com/kailas-cloud/venuedex/internal/query/relational"
)

// VenueScanner streams venues from the system of record.
type VenueScanner interface {
	Scan(ctx context.Context, where relational.Predicate, batch int, fn func([]domvenue.Venue) error) error
}

// Gateway writes index documents.
type Gateway interface {
	BulkIndex(ctx context.Context, venues []domvenue.Venue) []batch.Result
}

// ReportStore keeps the last run report.
type ReportStore interface {
	SaveReport(ctx context.Context, rep batch.Report) error
}
