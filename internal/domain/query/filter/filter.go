package filter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/query/field"
)

// MaxConditions bounds the number of conditions parsed from one filter map.
const MaxConditions = 32

// Wildcard marks a string value as a case-insensitive substring match.
const Wildcard = "*"

// Range suffixes merged into a single bounded condition on the base field.
const (
	FromSuffix = "_from"
	ToSuffix   = "_to"
)

// Op is the kind of a Condition.
type Op string

// Condition kinds.
const (
	Eq       Op = "eq"
	In       Op = "in"
	Range    Op = "range"
	Contains Op = "contains"
	Some     Op = "some" // at least one related row matches Nested
)

// Condition is one typed predicate over a schema field or relation.
// Values are coerced to the field kind: string, float64, bool or time.Time.
type Condition struct {
	op       Op
	field    field.Field
	value    any
	values   []any
	from, to any
	relation field.Relation
	nested   []Condition
}

// Op returns the condition kind.
func (c Condition) Op() Op { return c.op }

// Field returns the target field. Zero for Some.
func (c Condition) Field() field.Field { return c.field }

// Value returns the Eq operand or the Contains needle.
func (c Condition) Value() any { return c.value }

// Values returns the In operands.
func (c Condition) Values() []any { return c.values }

// Bounds returns inclusive range bounds; nil means open.
func (c Condition) Bounds() (from, to any) { return c.from, c.to }

// Relation returns the relation a Some condition applies to.
func (c Condition) Relation() field.Relation { return c.relation }

// Nested returns the conditions a related row must satisfy.
func (c Condition) Nested() []Condition { return c.nested }

// NewEq creates an equality condition.
func NewEq(f field.Field, v any) (Condition, error) {
	cv, err := Coerce(f, v)
	if err != nil {
		return Condition{}, err
	}
	return Condition{op: Eq, field: f, value: cv}, nil
}

// NewIn creates a set-membership condition.
func NewIn(f field.Field, vs []any) (Condition, error) {
	if len(vs) == 0 {
		return Condition{}, domain.NewInputError("filter."+f.Name, "set must not be empty")
	}
	out := make([]any, 0, len(vs))
	for _, v := range vs {
		cv, err := Coerce(f, v)
		if err != nil {
			return Condition{}, err
		}
		out = append(out, cv)
	}
	return Condition{op: In, field: f, values: out}, nil
}

// NewRange creates an inclusive range condition. At least one bound is required.
func NewRange(f field.Field, from, to any) (Condition, error) {
	if !f.Rangeable() {
		return Condition{}, domain.NewInputError("filter."+f.Name, "range requires a number or time field")
	}
	if from == nil && to == nil {
		return Condition{}, domain.NewInputError("filter."+f.Name, "range requires at least one bound")
	}
	c := Condition{op: Range, field: f}
	var err error
	if from != nil {
		if c.from, err = Coerce(f, from); err != nil {
			return Condition{}, err
		}
	}
	if to != nil {
		if c.to, err = Coerce(f, to); err != nil {
			return Condition{}, err
		}
	}
	if c.from != nil && c.to != nil && Compare(c.from, c.to) > 0 {
		return Condition{}, domain.NewInputError("filter."+f.Name, "range lower bound exceeds upper bound")
	}
	return c, nil
}

// NewContains creates a case-insensitive substring condition.
func NewContains(f field.Field, needle string) (Condition, error) {
	if f.Kind != field.String {
		return Condition{}, domain.NewInputError("filter."+f.Name, "wildcard requires a string field")
	}
	return Condition{op: Contains, field: f, value: needle}, nil
}

// NewSome creates a condition satisfied when any related row matches nested.
func NewSome(r field.Relation, nested []Condition) Condition {
	return Condition{op: Some, relation: r, nested: nested}
}

// FromMap converts a client filter map into typed conditions against the schema.
//
// Nested objects address relations, arrays become set membership, keys ending
// in _from/_to merge into one range on the base field, strings containing "*"
// become substring matches and everything else is equality. Unknown fields are
// rejected.
func FromMap(m map[string]any, s field.Schema) ([]Condition, error) {
	conds, err := parse(m, s.Field, s.Relation, "filter.")
	if err != nil {
		return nil, err
	}
	if countConditions(conds) > MaxConditions {
		return nil, domain.NewInputError("filter", "too many conditions (max %d)", MaxConditions)
	}
	return conds, nil
}

type fieldLookup func(string) (field.Field, bool)
type relationLookup func(string) (field.Relation, bool)

func parse(m map[string]any, lookup fieldLookup, rel relationLookup, prefix string) ([]Condition, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type bounds struct{ from, to any }
	ranges := map[string]*bounds{}
	var rangeOrder []string
	var out []Condition

	for _, key := range keys {
		raw := m[key]

		if nested, ok := raw.(map[string]any); ok {
			if rel == nil {
				return nil, domain.NewInputError(prefix+key, "nested relations are not supported here")
			}
			r, ok := rel(key)
			if !ok {
				return nil, domain.NewInputError(prefix+key, "unknown relation")
			}
			inner, err := parse(nested, r.Field, nil, prefix+key+".")
			if err != nil {
				return nil, err
			}
			if len(inner) > 0 {
				out = append(out, NewSome(r, inner))
			}
			continue
		}

		if base, isFrom, isTo := splitRangeKey(key); isFrom || isTo {
			f, ok := lookup(base)
			if !ok {
				return nil, domain.NewInputError(prefix+base, "unknown field")
			}
			if !f.Rangeable() {
				return nil, domain.NewInputError(prefix+base, "range requires a number or time field")
			}
			b, seen := ranges[base]
			if !seen {
				b = &bounds{}
				ranges[base] = b
				rangeOrder = append(rangeOrder, base)
			}
			if isFrom {
				b.from = raw
			} else {
				b.to = raw
			}
			continue
		}

		f, ok := lookup(key)
		if !ok {
			return nil, domain.NewInputError(prefix+key, "unknown field")
		}
		c, err := condition(f, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	for _, base := range rangeOrder {
		f, _ := lookup(base)
		b := ranges[base]
		c, err := NewRange(f, b.from, b.to)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func condition(f field.Field, raw any) (Condition, error) {
	switch v := raw.(type) {
	case []any:
		return NewIn(f, v)
	case []string:
		vs := make([]any, len(v))
		for i := range v {
			vs[i] = v[i]
		}
		return NewIn(f, vs)
	case string:
		if strings.Contains(v, Wildcard) {
			return NewContains(f, strings.ReplaceAll(v, Wildcard, ""))
		}
	}
	return NewEq(f, raw)
}

func splitRangeKey(key string) (base string, from, to bool) {
	switch {
	case strings.HasSuffix(key, FromSuffix) && len(key) > len(FromSuffix):
		return strings.TrimSuffix(key, FromSuffix), true, false
	case strings.HasSuffix(key, ToSuffix) && len(key) > len(ToSuffix):
		return strings.TrimSuffix(key, ToSuffix), false, true
	}
	return key, false, false
}

func countConditions(cs []Condition) int {
	n := 0
	for _, c := range cs {
		n++
		if c.op == Some {
			n += countConditions(c.nested)
		}
	}
	return n
}

// Coerce converts v to the canonical Go type of the field kind.
func Coerce(f field.Field, v any) (any, error) {
	bad := func() error {
		return domain.NewInputError("filter."+f.Name, "expected %s value, got %v", f.Kind, v)
	}
	switch f.Kind {
	case field.String:
		switch x := v.(type) {
		case string:
			return x, nil
		case float64, int, int64, bool, json.Number:
			return fmt.Sprint(x), nil
		}
	case field.Number:
		if n, ok := toFloat(v); ok {
			return n, nil
		}
	case field.Bool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err == nil {
				return b, nil
			}
		}
	case field.Time:
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			if t, err := ParseTime(x); err == nil {
				return t, nil
			}
		default:
			if ms, ok := toFloat(v); ok {
				return time.UnixMilli(int64(ms)).UTC(), nil
			}
		}
	}
	return nil, bad()
}

// ParseTime accepts RFC 3339, a bare date or unix milliseconds.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// Compare orders two coerced values of the same kind.
// Strings compare bytewise, false sorts before true.
func Compare(a, b any) int {
	switch x := a.(type) {
	case float64:
		y, _ := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y, _ := b.(string)
		return strings.Compare(x, y)
	case bool:
		y, _ := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case time.Time:
		y, _ := b.(time.Time)
		return x.Compare(y)
	}
	return 0
}
