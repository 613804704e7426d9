// Package relational builds system-of-record queries: a predicate tree,
// an ordered tie-break list and offset or keyset pagination.
package relational

import (
	"strings"
	"time"

	"github.com/kailas-cloud/venuedex/internal/domain/query/field"
	"github.com/kailas-cloud/venuedex/internal/domain/query/filter"
)

// Kind is the node type of a Predicate.
type Kind string

// Predicate node kinds.
const (
	KindAnd      Kind = "and"
	KindOr       Kind = "or"
	KindEq       Kind = "eq"
	KindIn       Kind = "in"
	KindRange    Kind = "range"
	KindContains Kind = "contains"
	KindSome     Kind = "some"
)

// Join links a child table to the root row.
type Join struct {
	Table      string
	ForeignKey string
}

// Predicate is a relational condition tree. Leaf values carry the Go type of
// the column kind: string, float64, bool or time.Time.
// An And with no children matches every row.
type Predicate struct {
	Kind     Kind
	Column   string
	Value    any
	Values   []any
	From, To any
	Children []Predicate
	Join     *Join
}

// And combines predicates, flattening nested Ands and dropping empty ones.
func And(ps ...Predicate) Predicate {
	out := Predicate{Kind: KindAnd}
	for _, p := range ps {
		switch {
		case p.IsEmpty():
		case p.Kind == KindAnd:
			out.Children = append(out.Children, p.Children...)
		default:
			out.Children = append(out.Children, p)
		}
	}
	return out
}

// Or matches when any child matches. Empty children are dropped; an Or left
// with nothing matches every row.
func Or(ps ...Predicate) Predicate {
	out := Predicate{Kind: KindOr}
	for _, p := range ps {
		if !p.IsEmpty() {
			out.Children = append(out.Children, p)
		}
	}
	if len(out.Children) == 0 {
		return Predicate{Kind: KindAnd}
	}
	return out
}

// Eq is case-sensitive equality.
func Eq(column string, v any) Predicate {
	return Predicate{Kind: KindEq, Column: column, Value: v}
}

// In is set membership.
func In(column string, vs ...any) Predicate {
	return Predicate{Kind: KindIn, Column: column, Values: vs}
}

// Between is an inclusive range; a nil bound is open.
func Between(column string, from, to any) Predicate {
	return Predicate{Kind: KindRange, Column: column, From: from, To: to}
}

// Contains is a case-insensitive substring match.
func Contains(column, needle string) Predicate {
	return Predicate{Kind: KindContains, Column: column, Value: needle}
}

// Some matches when at least one joined child row satisfies where.
func Some(j Join, where Predicate) Predicate {
	return Predicate{Kind: KindSome, Join: &j, Children: []Predicate{where}}
}

// IsEmpty reports whether p matches every row.
func (p Predicate) IsEmpty() bool {
	return p.Kind == "" || (p.Kind == KindAnd && len(p.Children) == 0)
}

// FromConditions converts typed filter conditions into one And predicate.
func FromConditions(conds []filter.Condition) Predicate {
	ps := make([]Predicate, 0, len(conds))
	for _, c := range conds {
		ps = append(ps, fromCondition(c))
	}
	return And(ps...)
}

func fromCondition(c filter.Condition) Predicate {
	col := c.Field().Column
	switch c.Op() {
	case filter.In:
		return In(col, c.Values()...)
	case filter.Range:
		from, to := c.Bounds()
		return Between(col, from, to)
	case filter.Contains:
		needle, _ := c.Value().(string)
		return Contains(col, needle)
	case filter.Some:
		r := c.Relation()
		return Some(Join{Table: r.Table, ForeignKey: r.ForeignKey}, FromConditions(c.Nested()))
	default:
		return Eq(col, c.Value())
	}
}

// Build converts a client filter map into a predicate, rejecting fields the
// schema does not declare.
func Build(filters map[string]any, s field.Schema) (Predicate, error) {
	conds, err := filter.FromMap(filters, s)
	if err != nil {
		return Predicate{}, err
	}
	return FromConditions(conds), nil
}

// BuildSearchClause ORs case-insensitive substring matches of term across
// columns. An empty term matches every row.
func BuildSearchClause(term string, columns []string) Predicate {
	term = strings.TrimSpace(term)
	if term == "" {
		return Predicate{Kind: KindAnd}
	}
	ps := make([]Predicate, 0, len(columns))
	for _, c := range columns {
		ps = append(ps, Contains(c, term))
	}
	return Or(ps...)
}

// Row is an in-memory record keyed by column. Joined child rows live under
// the child table name as []Row.
type Row map[string]any

// Eval evaluates p against row. It mirrors the SQL rendering and backs
// tests and in-process stores.
func (p Predicate) Eval(row Row) bool {
	switch p.Kind {
	case "", KindAnd:
		for _, c := range p.Children {
			if !c.Eval(row) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range p.Children {
			if c.Eval(row) {
				return true
			}
		}
		return false
	case KindEq:
		v, ok := row[p.Column]
		return ok && equal(v, p.Value)
	case KindIn:
		v, ok := row[p.Column]
		if !ok {
			return false
		}
		for _, want := range p.Values {
			if equal(v, want) {
				return true
			}
		}
		return false
	case KindRange:
		v, ok := row[p.Column]
		if !ok || v == nil {
			return false
		}
		if p.From != nil && filter.Compare(normalize(v), normalize(p.From)) < 0 {
			return false
		}
		if p.To != nil && filter.Compare(normalize(v), normalize(p.To)) > 0 {
			return false
		}
		return true
	case KindContains:
		s, _ := row[p.Column].(string)
		needle, _ := p.Value.(string)
		return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	case KindSome:
		children, _ := row[p.Join.Table].([]Row)
		for _, c := range children {
			if And(p.Children...).Eval(c) {
				return true
			}
		}
		return false
	}
	return false
}

func equal(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	}
	return v
}
