// Package spec normalizes a client listing request into an immutable FilterSpec.
package spec

import (
	"math"
	"slices"
	"strings"

	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/geo"
	"github.com/kailas-cloud/venuedex/internal/domain/query/field"
	"github.com/kailas-cloud/venuedex/internal/domain/query/filter"
)

// Request limits.
const (
	// MaxTermLength bounds the free-text term.
	MaxTermLength = 256
	MinLimit      = 1
	MaxLimit      = 100
)

// SortField is a logical sort key.
type SortField string

// Sort keys.
const (
	Relevance SortField = "relevance"
	Distance  SortField = "distance"
	CreatedAt SortField = "createdAt"
	Name      SortField = "name"
	Price     SortField = "price"
	Rating    SortField = "rating"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is the primary sort key. Backends append createdAt desc and id as tie-breaks.
type Sort struct {
	Field     SortField
	Direction Direction
}

// defaultDirection is used when a sort field is given without a direction.
var defaultDirection = map[SortField]Direction{
	Relevance: Desc,
	Distance:  Asc,
	CreatedAt: Desc,
	Name:      Asc,
	Price:     Asc,
	Rating:    Desc,
}

// Mode is the pagination mode.
type Mode string

// Pagination modes.
const (
	OffsetMode Mode = "offset"
	CursorMode Mode = "cursor"
)

// Page is the active pagination window. Exactly one mode is set: Number
// (1-based) is meaningful in offset mode, Cursor in cursor mode.
type Page struct {
	Mode   Mode
	Number int
	Limit  int
	Cursor string
}

// Offset returns (Number-1)*Limit in offset mode and 0 otherwise.
func (p Page) Offset() int {
	if p.Mode != OffsetMode {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// Geo is a circular geographic constraint.
type Geo struct {
	Center geo.Point
	Radius geo.Radius
}

// RadiusMeters returns the radius in meters.
func (g Geo) RadiusMeters() float64 { return g.Radius.Meters() }

// Params is the raw request as received from a caller.
// Zero values mean "not supplied".
type Params struct {
	Term             string
	Filters          map[string]any
	Lat, Lon         *float64
	Radius           string
	Sort             string
	Order            string
	Page             int
	Limit            int
	Cursor           string
	IncludeRelations bool
}

// Surface holds the defaults and permissions of one listing endpoint.
type Surface struct {
	Name         string
	DefaultLimit int
	DefaultSort  Sort
	SortFields   []SortField
	Schema       field.Schema
	AllowGeo     bool
	// MaxWindow caps offset+limit; 0 disables the cap.
	MaxWindow int
}

// FilterSpec is the normalized, backend-agnostic listing request.
// It is immutable after New.
type FilterSpec struct {
	term             string
	conditions       []filter.Condition
	geo              *Geo
	sort             Sort
	page             Page
	includeRelations bool
}

// New validates p against the surface and returns the normalized spec.
// Every violation is a *domain.InputError.
func New(p Params, s Surface) (FilterSpec, error) {
	var fs FilterSpec

	fs.term = strings.TrimSpace(p.Term)
	if len(fs.term) > MaxTermLength {
		return FilterSpec{}, domain.NewInputError("q", "term too long (max %d chars)", MaxTermLength)
	}

	if len(p.Filters) > 0 {
		if s.Schema.IsZero() {
			return FilterSpec{}, domain.NewInputError("filter", "filters are not supported on %s", s.Name)
		}
		conds, err := filter.FromMap(p.Filters, s.Schema)
		if err != nil {
			return FilterSpec{}, err
		}
		fs.conditions = conds
	}

	g, err := parseGeo(p, s)
	if err != nil {
		return FilterSpec{}, err
	}
	fs.geo = g

	if fs.sort, err = parseSort(p, s, g != nil); err != nil {
		return FilterSpec{}, err
	}
	if fs.page, err = parsePage(p, s); err != nil {
		return FilterSpec{}, err
	}
	fs.includeRelations = p.IncludeRelations
	return fs, nil
}

func parseGeo(p Params, s Surface) (*Geo, error) {
	if p.Lat == nil && p.Lon == nil && p.Radius == "" {
		return nil, nil
	}
	if !s.AllowGeo {
		return nil, domain.NewInputError("geo", "geo filtering is not supported on %s", s.Name)
	}
	if p.Lat == nil || p.Lon == nil {
		return nil, domain.NewInputError("geo", "lat and lon must be given together")
	}
	if !geo.ValidateCoordinates(*p.Lat, *p.Lon) {
		return nil, domain.NewInputError("geo", "lat must be in [-90,90] and lon in [-180,180]")
	}
	if p.Radius == "" {
		return nil, domain.NewInputError("radius", "radius is required with lat/lon")
	}
	r, err := geo.ParseRadius(p.Radius)
	if err != nil {
		return nil, domain.NewInputError("radius", "%s", err.Error())
	}
	return &Geo{Center: geo.Point{Lat: *p.Lat, Lon: *p.Lon}, Radius: r}, nil
}

func parseSort(p Params, s Surface, hasGeo bool) (Sort, error) {
	if p.Sort == "" {
		out := s.DefaultSort
		if p.Order != "" {
			d, err := parseDirection(p.Order)
			if err != nil {
				return Sort{}, err
			}
			out.Direction = d
		}
		return out, nil
	}

	f := SortField(p.Sort)
	if !slices.Contains(s.SortFields, f) {
		return Sort{}, domain.NewInputError("sort", "unknown sort field %q", p.Sort)
	}
	if f == Distance && !hasGeo {
		return Sort{}, domain.NewInputError("sort", "sort=distance requires lat, lon and radius")
	}
	d := defaultDirection[f]
	if p.Order != "" {
		var err error
		if d, err = parseDirection(p.Order); err != nil {
			return Sort{}, err
		}
	}
	return Sort{Field: f, Direction: d}, nil
}

func parseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(s)); d {
	case Asc, Desc:
		return d, nil
	}
	return "", domain.NewInputError("order", "order must be asc or desc, got %q", s)
}

func parsePage(p Params, s Surface) (Page, error) {
	limit := p.Limit
	if limit == 0 {
		limit = s.DefaultLimit
	}
	if limit < MinLimit || limit > MaxLimit {
		return Page{}, domain.NewInputError("limit", "limit must be between %d and %d", MinLimit, MaxLimit)
	}

	// a cursor always wins over page
	if p.Cursor != "" {
		return Page{Mode: CursorMode, Limit: limit, Cursor: p.Cursor}, nil
	}

	n := p.Page
	if n == 0 {
		n = 1
	}
	if n < 1 {
		return Page{}, domain.NewInputError("page", "page must be >= 1")
	}
	// n*limit is the end of the window; bound n before multiplying
	if s.MaxWindow > 0 && n > s.MaxWindow/limit {
		return Page{}, domain.NewInputError("page", "page window exceeds %d results", s.MaxWindow)
	}
	if n > math.MaxInt/limit {
		return Page{}, domain.NewInputError("page", "page must be at most %d", math.MaxInt/limit)
	}
	return Page{Mode: OffsetMode, Number: n, Limit: limit}, nil
}

// Term returns the trimmed free-text term.
func (f FilterSpec) Term() string { return f.term }

// Conditions returns a copy of the field conditions.
func (f FilterSpec) Conditions() []filter.Condition { return slices.Clone(f.conditions) }

// Geo returns the geo constraint, nil when absent.
func (f FilterSpec) Geo() *Geo {
	if f.geo == nil {
		return nil
	}
	g := *f.geo
	return &g
}

// Sort returns the primary sort key.
func (f FilterSpec) Sort() Sort { return f.sort }

// Page returns the pagination window.
func (f FilterSpec) Page() Page { return f.page }

// IncludeRelations reports whether child collections should be attached.
func (f FilterSpec) IncludeRelations() bool { return f.includeRelations }
