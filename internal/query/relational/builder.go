package relational

import (
	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/query/field"
	"github.com/kailas-cloud/venuedex/internal/domain/query/page"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	"github.com/kailas-cloud/venuedex/internal/query"
)

// Order is one (column, direction) tie-break pair.
type Order struct {
	Column    string
	Direction spec.Direction
}

// Anchor is the keyset cursor position: the identity of the last row seen.
type Anchor struct {
	Column string
	Value  string
}

// Query is a complete relational read.
//
// Offset mode: Skip=(page-1)*limit, Take=limit, After=nil.
// Cursor mode: After anchors the ordering at the cursor row and Skip=1 drops
// that row, Take=limit.
type Query struct {
	Table            string
	Where            Predicate
	OrderBy          []Order
	Skip             int
	Take             int
	After            *Anchor
	IncludeRelations bool
}

// Builder builds relational queries for one schema.
type Builder struct {
	schema      field.Schema
	textColumns []string
	idColumn    string
	sortColumns map[spec.SortField]string
}

var _ query.Builder[Query] = (*Builder)(nil)

// NewBuilder creates a Builder. textFields are the logical fields matched by
// the free-text term.
func NewBuilder(s field.Schema, textFields []string) *Builder {
	b := &Builder{schema: s, sortColumns: map[spec.SortField]string{}}
	for _, name := range textFields {
		if f, ok := s.Field(name); ok {
			b.textColumns = append(b.textColumns, f.Column)
		}
	}
	id, _ := s.Field("id")
	b.idColumn = id.Column
	for _, f := range s.Fields() {
		if f.Sortable {
			b.sortColumns[spec.SortField(f.Name)] = f.Column
		}
	}
	return b
}

// Build translates a FilterSpec. An invalid keyset cursor starts from the
// first page.
func (b *Builder) Build(s spec.FilterSpec) (Query, error) {
	orders, err := b.BuildOrderBy(s.Sort())
	if err != nil {
		return Query{}, err
	}

	q := Query{
		Table:            b.schema.Table(),
		Where:            And(FromConditions(s.Conditions()), BuildSearchClause(s.Term(), b.textColumns)),
		OrderBy:          orders,
		Take:             s.Page().Limit,
		IncludeRelations: s.IncludeRelations(),
	}

	p := s.Page()
	switch p.Mode {
	case spec.CursorMode:
		if id, ok := page.DecodeKey(p.Cursor); ok {
			q.After = &Anchor{Column: b.idColumn, Value: id}
			q.Skip = 1
		}
	default:
		q.Skip = p.Offset()
	}
	return q, nil
}

// BuildOrderBy expands the primary sort into the full tie-break list:
// primary, then created_at desc, then id asc. A zero sort means createdAt desc.
func (b *Builder) BuildOrderBy(sorts ...spec.Sort) ([]Order, error) {
	if len(sorts) == 0 || (len(sorts) == 1 && sorts[0].Field == "") {
		sorts = []spec.Sort{{Field: spec.CreatedAt, Direction: spec.Desc}}
	}

	out := make([]Order, 0, len(sorts)+2)
	seen := map[string]bool{}
	add := func(col string, d spec.Direction) {
		if !seen[col] {
			seen[col] = true
			out = append(out, Order{Column: col, Direction: d})
		}
	}

	for _, s := range sorts {
		col, ok := b.sortColumns[s.Field]
		if !ok {
			return nil, domain.NewInputError("sort", "field %q is not sortable here", s.Field)
		}
		d := s.Direction
		if d == "" {
			d = spec.Asc
		}
		add(col, d)
	}
	if col, ok := b.sortColumns[spec.CreatedAt]; ok {
		add(col, spec.Desc)
	}
	add(b.idColumn, spec.Asc)
	return out, nil
}
