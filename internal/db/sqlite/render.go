package sqlite

import (
	"strings"
	"time"

	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	"github.com/kailas-cloud/venuedex/internal/query/relational"
)

// IDColumn is the primary key column of every table.
const IDColumn = "id"

// Statement is SQL text with positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Select renders q as a SELECT of columns from q.Table.
//
// Keyset pagination includes the anchor row itself followed by every
// matching row strictly after it in the ORDER BY, so q.Skip=1 always drops
// exactly the anchor, even when the anchor no longer matches the filter.
// A missing anchor row yields no rows.
func Select(q relational.Query, columns []string) Statement {
	r := &renderer{}
	var b strings.Builder

	b.WriteString("SELECT ")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(qualify(q.Table, c))
	}
	b.WriteString(" FROM ")
	b.WriteString(q.Table)

	where := r.predicate(q.Table, q.Where)
	if q.After != nil {
		where = "((" + where + ") AND (" + r.keyset(q.Table, q.OrderBy, *q.After) + ")) OR " +
			qualify(q.Table, q.After.Column) + " = ?"
		r.args = append(r.args, q.After.Value)
	}
	b.WriteString(" WHERE ")
	b.WriteString(where)

	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range q.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(qualify(q.Table, o.Column))
			b.WriteString(" ")
			b.WriteString(direction(o.Direction))
		}
	}

	take := q.Take
	if take <= 0 {
		take = -1
	}
	b.WriteString(" LIMIT ? OFFSET ?")
	r.args = append(r.args, take, q.Skip)

	return Statement{SQL: b.String(), Args: r.args}
}

// Count renders a COUNT(*) of the rows of table matching where.
func Count(table string, where relational.Predicate) Statement {
	r := &renderer{}
	cond := r.predicate(table, where)
	return Statement{SQL: "SELECT COUNT(*) FROM " + table + " WHERE " + cond, Args: r.args}
}

type renderer struct {
	args []any
}

func (r *renderer) predicate(table string, p relational.Predicate) string {
	switch p.Kind {
	case "", relational.KindAnd:
		return r.join(table, p.Children, " AND ", "1=1")
	case relational.KindOr:
		return r.join(table, p.Children, " OR ", "1=0")
	case relational.KindEq:
		r.args = append(r.args, Arg(p.Value))
		return qualify(table, p.Column) + " = ?"
	case relational.KindIn:
		if len(p.Values) == 0 {
			return "1=0"
		}
		marks := make([]string, len(p.Values))
		for i, v := range p.Values {
			marks[i] = "?"
			r.args = append(r.args, Arg(v))
		}
		return qualify(table, p.Column) + " IN (" + strings.Join(marks, ", ") + ")"
	case relational.KindRange:
		var parts []string
		if p.From != nil {
			parts = append(parts, qualify(table, p.Column)+" >= ?")
			r.args = append(r.args, Arg(p.From))
		}
		if p.To != nil {
			parts = append(parts, qualify(table, p.Column)+" <= ?")
			r.args = append(r.args, Arg(p.To))
		}
		if len(parts) == 0 {
			return "1=1"
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	case relational.KindContains:
		needle, _ := p.Value.(string)
		r.args = append(r.args, "%"+escapeLike(needle)+"%")
		return qualify(table, p.Column) + ` LIKE ? ESCAPE '\'`
	case relational.KindSome:
		child := p.Join.Table
		inner := r.join(child, p.Children, " AND ", "1=1")
		return "EXISTS (SELECT 1 FROM " + child + " WHERE " + qualify(child, p.Join.ForeignKey) +
			" = " + qualify(table, IDColumn) + " AND " + inner + ")"
	}
	return "1=0"
}

func (r *renderer) join(table string, ps []relational.Predicate, sep, empty string) string {
	if len(ps) == 0 {
		return empty
	}
	parts := make([]string, len(ps))
	for i, c := range ps {
		parts[i] = "(" + r.predicate(table, c) + ")"
	}
	return strings.Join(parts, sep)
}

// keyset renders "row comes strictly after the anchor" as an OR chain:
// (c1 > a1) OR (c1 = a1 AND c2 > a2) OR ... with anchor values read by
// subquery, and > flipped to < for descending columns.
func (r *renderer) keyset(table string, orders []relational.Order, a relational.Anchor) string {
	if len(orders) == 0 {
		orders = []relational.Order{{Column: a.Column, Direction: spec.Asc}}
	}
	anchor := func(col string) string {
		r.args = append(r.args, a.Value)
		return "(SELECT " + col + " FROM " + table + " WHERE " + a.Column + " = ?)"
	}

	alts := make([]string, 0, len(orders))
	for i, o := range orders {
		terms := make([]string, 0, i+1)
		for _, prev := range orders[:i] {
			terms = append(terms, qualify(table, prev.Column)+" = "+anchor(prev.Column))
		}
		op := " > "
		if o.Direction == spec.Desc {
			op = " < "
		}
		terms = append(terms, qualify(table, o.Column)+op+anchor(o.Column))
		alts = append(alts, "("+strings.Join(terms, " AND ")+")")
	}
	return strings.Join(alts, " OR ")
}

// Arg converts a predicate value to its stored representation: times are
// unix milliseconds and booleans 0/1.
func Arg(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UnixMilli()
	case bool:
		if x {
			return 1
		}
		return 0
	}
	return v
}

func qualify(table, col string) string {
	return table + "." + col
}

func direction(d spec.Direction) string {
	if d == spec.Desc {
		return "DESC"
	}
	return "ASC"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
