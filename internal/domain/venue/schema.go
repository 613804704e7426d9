package venue

import (
	"github.com/kailas-cloud/venuedex/internal/domain/query/field"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
)

// Relational tables.
const (
	Table      = "venues"
	CourtTable = "courts"
)

// Courts is the child relation of a venue.
var Courts = field.MustRelation("courts", CourtTable, "venue_id", []field.Field{
	{Name: "id", Kind: field.String, Column: "id"},
	{Name: "name", Kind: field.String, Column: "name"},
	{Name: "category", Kind: field.String, Column: "category", IndexField: "courtCategory"},
	{Name: "indoor", Kind: field.Bool, Column: "indoor", IndexField: "courtIndoor"},
	{Name: "active", Kind: field.Bool, Column: "active", IndexField: "courtActive"},
})

// Schema is the closed set of filterable venue fields.
var Schema = field.MustNew(Table, []field.Field{
	{Name: "id", Kind: field.String, Column: "id"},
	{Name: "ownerId", Kind: field.String, Column: "owner_id", IndexField: "ownerId"},
	{Name: "name", Kind: field.String, Column: "name", Sortable: true},
	{Name: "slug", Kind: field.String, Column: "slug", IndexField: "slug"},
	{Name: "address", Kind: field.String, Column: "address"},
	{Name: "description", Kind: field.String, Column: "description"},
	{Name: "published", Kind: field.Bool, Column: "published", IndexField: "published"},
	{Name: "price", Kind: field.Number, Column: "price", IndexField: "price", Sortable: true},
	{Name: "rating", Kind: field.Number, Column: "rating", IndexField: "rating", Sortable: true},
	{Name: "createdAt", Kind: field.Time, Column: "created_at", IndexField: "createdAt", Sortable: true},
	{Name: "updatedAt", Kind: field.Time, Column: "updated_at", IndexField: "updatedAt"},
}, Courts)

// Index attributes used by the search query builder.
const (
	GeoAttribute       = "location"
	TieBreakAttribute  = "createdAt"
	PublishedAttribute = "published"
)

// TextFields are matched by the free-text term. They double as the TEXT
// attribute names of the index.
var TextFields = []string{"name", "description", "address"}

// SortAttributes maps sort keys to index attributes.
var SortAttributes = map[spec.SortField]string{
	spec.CreatedAt: "createdAt",
	spec.Name:      "name",
	spec.Price:     "price",
	spec.Rating:    "rating",
}

// SearchSurface is the index-backed venue search endpoint.
func SearchSurface(defaultLimit int) spec.Surface {
	return spec.Surface{
		Name:         "venue search",
		DefaultLimit: defaultLimit,
		DefaultSort:  spec.Sort{Field: spec.Relevance, Direction: spec.Desc},
		SortFields: []spec.SortField{
			spec.Relevance, spec.Distance, spec.CreatedAt, spec.Name, spec.Price, spec.Rating,
		},
		Schema:    Schema,
		AllowGeo:  true,
		MaxWindow: 10000,
	}
}

// ListingSurface is the relational venue listing endpoint.
func ListingSurface(defaultLimit int) spec.Surface {
	return spec.Surface{
		Name:         "venue listing",
		DefaultLimit: defaultLimit,
		DefaultSort:  spec.Sort{Field: spec.CreatedAt, Direction: spec.Desc},
		SortFields:   []spec.SortField{spec.CreatedAt, spec.Name, spec.Price, spec.Rating},
		Schema:       Schema,
	}
}
