package venuedex

import (
	"github.com/kailas-cloud/venuedex/internal/domain/batch"
	"github.com/kailas-cloud/venuedex/internal/domain/geo"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	listinguc "github.com/kailas-cloud/venuedex/internal/usecase/listing"
	searchuc "github.com/kailas-cloud/venuedex/internal/usecase/search"
)

// Entity and result types shared with the service.
type (
	// Venue is a facility row in the system of record.
	Venue = domvenue.Venue
	// Court is a bookable unit of a venue.
	Court = domvenue.Court
	// Point is a WGS84 coordinate.
	Point = geo.Point
	// Document is the index projection of a venue.
	Document = domvenue.Document
	// SearchPage is one page of ranked hits.
	SearchPage = searchuc.Page
	// ListPage is one page of venues read from the store.
	ListPage = listinguc.Page
	// Report summarizes a full reindex.
	Report = batch.Report
	// Stats are index diagnostics.
	Stats = searchuc.Stats
)

// Query is a listing request. Zero fields are omitted.
type Query struct {
	Term string
	// Filters follow the HTTP filter object: nested maps address courts,
	// slices mean "any of", "_from"/"_to" suffixes bound a range and a
	// "*" in a string value matches a substring.
	Filters  map[string]any
	Lat, Lon *float64
	Radius   string // "5km", "800m", "2mi"
	Sort     string
	Order    string
	Page     int
	Limit    int
	Cursor   string
	// IncludeCourts keeps court details in the results.
	IncludeCourts bool
}

func (q Query) params() spec.Params {
	return spec.Params{
		Term:             q.Term,
		Filters:          q.Filters,
		Lat:              q.Lat,
		Lon:              q.Lon,
		Radius:           q.Radius,
		Sort:             q.Sort,
		Order:            q.Order,
		Page:             q.Page,
		Limit:            q.Limit,
		Cursor:           q.Cursor,
		IncludeRelations: q.IncludeCourts,
	}
}
