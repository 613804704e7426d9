// Package search builds search-index queries from a FilterSpec and decodes
// raw hits into typed result pages.
package search

import (
	"slices"
	"strconv"
	"time"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/query/field"
	"github.com/kailas-cloud/venuedex/internal/domain/query/filter"
	"github.com/kailas-cloud/venuedex/internal/domain/query/page"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	"github.com/kailas-cloud/venuedex/internal/query"
)

// Config describes how one entity is laid out in the index.
type Config struct {
	IndexName string
	// TextFields are the TEXT attributes matched by the term.
	TextFields []string
	// GeoField is the GEO attribute used for radius filters and distance sorts.
	GeoField string
	// SortAttributes maps sort keys to SORTABLE attributes.
	SortAttributes map[spec.SortField]string
	// TieBreak is the descending secondary sort attribute.
	TieBreak string
	// MaxWindow caps offset+limit; 0 disables the cap.
	MaxWindow int
	// Required clauses are ANDed into every query.
	Required []db.Clause
}

// Builder builds db.SearchQuery values for one index.
type Builder struct {
	cfg Config
}

var _ query.Builder[db.SearchQuery] = (*Builder)(nil)

// NewBuilder creates a Builder.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build translates a FilterSpec into an index query.
//
// Conditions on fields without an index attribute are input errors, and so
// is a relation filter naming more than one child field: the index matches
// each child attribute on its own, not on the same child.
//
// Relevance sorts break ties by TieBreak, as do attribute and distance
// sorts. In cursor mode the cursor is the encoded offset of the next page;
// a cursor that is malformed or past the window restarts at offset 0.
func (b *Builder) Build(s spec.FilterSpec) (db.SearchQuery, error) {
	q := db.SearchQuery{
		IndexName:  b.cfg.IndexName,
		Text:       s.Term(),
		TextFields: b.cfg.TextFields,
		Limit:      s.Page().Limit,
	}

	clauses, err := b.clauses(s.Conditions())
	if err != nil {
		return db.SearchQuery{}, err
	}
	q.Clauses = append(slices.Clone(b.cfg.Required), clauses...)

	if g := s.Geo(); g != nil {
		q.Geo = &db.GeoFilter{
			Field:        b.cfg.GeoField,
			Lon:          g.Center.Lon,
			Lat:          g.Center.Lat,
			RadiusMeters: g.RadiusMeters(),
		}
	}

	sort := s.Sort()
	switch sort.Field {
	case spec.Relevance, "":
		q.ThenBy = b.cfg.TieBreak
	case spec.Distance:
		if q.Geo == nil {
			return db.SearchQuery{}, domain.NewInputError("sort", "sort=distance requires lat, lon and radius")
		}
		q.SortByDistance = true
		q.SortDesc = sort.Direction == spec.Desc
		q.ThenBy = b.cfg.TieBreak
	default:
		attr, ok := b.cfg.SortAttributes[sort.Field]
		if !ok {
			return db.SearchQuery{}, domain.NewInputError("sort", "field %q is not sortable in search", sort.Field)
		}
		q.SortBy = attr
		q.SortDesc = sort.Direction == spec.Desc
		if attr != b.cfg.TieBreak {
			q.ThenBy = b.cfg.TieBreak
		}
	}

	p := s.Page()
	if p.Mode == spec.CursorMode {
		q.Offset = page.DecodeOffset(p.Cursor)
		if b.cfg.MaxWindow > 0 && q.Offset+q.Limit > b.cfg.MaxWindow {
			q.Offset = 0
		}
	} else {
		q.Offset = p.Offset()
	}
	return q, nil
}

func (b *Builder) clauses(conds []filter.Condition) ([]db.Clause, error) {
	var out []db.Clause
	for _, c := range conds {
		if c.Op() == filter.Some {
			if len(c.Nested()) > 1 {
				rel := c.Relation().Name
				return nil, domain.NewInputError("filter."+rel, "search filters on one %s field at a time", rel)
			}
			nested, err := b.clauses(c.Nested())
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		cl, skip, err := clause(c)
		if err != nil {
			return nil, err
		}
		if !skip {
			out = append(out, cl)
		}
	}
	return out, nil
}

func clause(c filter.Condition) (db.Clause, bool, error) {
	f := c.Field()
	if !f.Indexed() {
		return db.Clause{}, false, domain.NewInputError("filter."+f.Name, "field is not filterable in search")
	}
	numeric := f.Kind == field.Number || f.Kind == field.Time

	switch c.Op() {
	case filter.Contains:
		needle, _ := c.Value().(string)
		if needle == "" {
			return db.Clause{}, true, nil
		}
		return db.Clause{Field: f.IndexField, Kind: db.ClauseTagContains, Values: []string{needle}}, false, nil

	case filter.Range:
		from, to := c.Bounds()
		r := db.NumericRange{}
		if from != nil {
			v := numberOf(from)
			r.Min = &v
		}
		if to != nil {
			v := numberOf(to)
			r.Max = &v
		}
		return db.Clause{Field: f.IndexField, Kind: db.ClauseNumeric, Ranges: []db.NumericRange{r}}, false, nil

	case filter.In:
		if numeric {
			ranges := make([]db.NumericRange, 0, len(c.Values()))
			for _, v := range c.Values() {
				ranges = append(ranges, point(numberOf(v)))
			}
			return db.Clause{Field: f.IndexField, Kind: db.ClauseNumeric, Ranges: ranges}, false, nil
		}
		vals := make([]string, 0, len(c.Values()))
		for _, v := range c.Values() {
			vals = append(vals, tagOf(v))
		}
		return db.Clause{Field: f.IndexField, Kind: db.ClauseTag, Values: vals}, false, nil

	default:
		if numeric {
			return db.Clause{
				Field:  f.IndexField,
				Kind:   db.ClauseNumeric,
				Ranges: []db.NumericRange{point(numberOf(c.Value()))},
			}, false, nil
		}
		return db.Clause{Field: f.IndexField, Kind: db.ClauseTag, Values: []string{tagOf(c.Value())}}, false, nil
	}
}

func point(v float64) db.NumericRange {
	return db.NumericRange{Min: &v, Max: &v}
}

// numberOf maps a coerced number or time to its indexed numeric value.
// Times are stored as unix milliseconds.
func numberOf(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case time.Time:
		return float64(x.UnixMilli())
	}
	return 0
}

func tagOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}
