package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/domain/geo"
)

type hit struct {
	key      string
	score    float64
	distance float64
	doc      document
}

// Search evaluates q against the documents covered by the index.
//
// Every term token must occur in one of the text fields; the score is the
// weighted count of occurrences. Tag matches ignore case unless the field
// is case-sensitive. Multi-valued attributes ([*] paths) match when any
// value matches.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err, Temporary: true}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.indexes[q.IndexName]
	if !ok {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}
	ev, err := newEvaluator(def, q)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	var hits []hit
	for _, key := range s.keysLocked(def) {
		d := s.docs[key]
		h, ok := ev.match(d.parsed)
		if !ok {
			continue
		}
		h.key = key
		h.doc = d
		hits = append(hits, h)
	}

	slices.SortStableFunc(hits, ev.compare)

	res := &db.SearchResult{Total: len(hits)}
	start := min(q.Offset, len(hits))
	end := min(start+q.Limit, len(hits))
	for _, h := range hits[start:end] {
		res.Entries = append(res.Entries, db.SearchEntry{
			Key:    h.key,
			Score:  h.score,
			Fields: map[string]string{db.JSONRootField: string(h.doc.raw)},
		})
	}
	return res, nil
}

type evaluator struct {
	def    *db.IndexDefinition
	q      *db.SearchQuery
	tokens []string
	text   []*db.IndexField
	geo    *db.IndexField
}

func newEvaluator(def *db.IndexDefinition, q *db.SearchQuery) (*evaluator, error) {
	ev := &evaluator{def: def, q: q, tokens: tokenize(q.Text)}

	if len(q.TextFields) > 0 {
		for _, attr := range q.TextFields {
			f, ok := def.Field(attr)
			if !ok || f.Type != db.IndexFieldText {
				return nil, fmt.Errorf("unknown text field %q", attr)
			}
			ev.text = append(ev.text, f)
		}
	} else {
		for i := range def.Fields {
			if def.Fields[i].Type == db.IndexFieldText {
				ev.text = append(ev.text, &def.Fields[i])
			}
		}
	}

	for i := range q.Clauses {
		if _, ok := def.Field(q.Clauses[i].Field); !ok {
			return nil, fmt.Errorf("unknown field %q", q.Clauses[i].Field)
		}
	}
	if q.Geo != nil {
		f, ok := def.Field(q.Geo.Field)
		if !ok || f.Type != db.IndexFieldGeo {
			return nil, fmt.Errorf("unknown geo field %q", q.Geo.Field)
		}
		ev.geo = f
	}
	for _, attr := range []string{q.SortBy, q.ThenBy} {
		if attr == "" {
			continue
		}
		if f, ok := def.Field(attr); !ok || !f.Sortable {
			return nil, fmt.Errorf("field %q is not sortable", attr)
		}
	}
	return ev, nil
}

func (ev *evaluator) match(doc any) (hit, bool) {
	var h hit

	if len(ev.tokens) > 0 {
		score, ok := ev.textScore(doc)
		if !ok {
			return h, false
		}
		h.score = score
	}

	for i := range ev.q.Clauses {
		if !ev.clause(doc, &ev.q.Clauses[i]) {
			return h, false
		}
	}

	if g := ev.q.Geo; g != nil {
		d, ok := ev.distance(doc)
		if !ok || d > g.RadiusMeters {
			return h, false
		}
		h.distance = d
	}
	return h, true
}

func (ev *evaluator) textScore(doc any) (float64, bool) {
	counts := make([]map[string]int, len(ev.text))
	for i, f := range ev.text {
		counts[i] = map[string]int{}
		for _, v := range resolve(doc, f.Name) {
			if str, ok := v.(string); ok {
				for _, tok := range tokenize(str) {
					counts[i][tok]++
				}
			}
		}
	}

	var score float64
	for _, tok := range ev.tokens {
		found := false
		for i, f := range ev.text {
			if n := counts[i][tok]; n > 0 {
				found = true
				w := f.Weight
				if w == 0 {
					w = 1
				}
				score += w * float64(n)
			}
		}
		if !found {
			return 0, false
		}
	}
	return score, true
}

func (ev *evaluator) clause(doc any, c *db.Clause) bool {
	f, _ := ev.def.Field(c.Field)
	values := resolve(doc, f.Name)

	switch c.Kind {
	case db.ClauseNumeric:
		for _, v := range values {
			n, ok := v.(float64)
			if !ok {
				continue
			}
			for _, r := range c.Ranges {
				if (r.Min == nil || n >= *r.Min) && (r.Max == nil || n <= *r.Max) {
					return true
				}
			}
		}
		return false

	case db.ClauseTagContains:
		needle := strings.ToLower(c.Values[0])
		for _, v := range values {
			if tag, ok := tagOf(v); ok && strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false

	default:
		for _, v := range values {
			tag, ok := tagOf(v)
			if !ok {
				continue
			}
			for _, want := range c.Values {
				if tag == want || (!f.TagCaseSensitive && strings.EqualFold(tag, want)) {
					return true
				}
			}
		}
		return false
	}
}

func (ev *evaluator) distance(doc any) (float64, bool) {
	for _, v := range resolve(doc, ev.geo.Name) {
		str, ok := v.(string)
		if !ok {
			continue
		}
		lon, lat, ok := parseLonLat(str)
		if !ok {
			continue
		}
		return geo.Haversine(ev.q.Geo.Lat, ev.q.Geo.Lon, lat, lon), true
	}
	return 0, false
}

// compare orders hits by the primary key, then ThenBy descending, then key.
func (ev *evaluator) compare(a, b hit) int {
	q := ev.q
	var c int
	switch {
	case q.SortByDistance:
		c = cmp.Compare(a.distance, b.distance)
		if q.SortDesc {
			c = -c
		}
	case q.SortBy != "":
		c = ev.compareAttr(a, b, q.SortBy)
		if q.SortDesc {
			c = -c
		}
	default:
		c = cmp.Compare(b.score, a.score)
	}
	if c != 0 {
		return c
	}
	if q.ThenBy != "" {
		if c = ev.compareAttr(b, a, q.ThenBy); c != 0 {
			return c
		}
	}
	return strings.Compare(a.key, b.key)
}

func (ev *evaluator) compareAttr(a, b hit, attr string) int {
	f, _ := ev.def.Field(attr)
	av := first(resolve(a.doc.parsed, f.Name))
	bv := first(resolve(b.doc.parsed, f.Name))
	switch x := av.(type) {
	case float64:
		y, ok := bv.(float64)
		if !ok {
			return -1
		}
		return cmp.Compare(x, y)
	case string:
		y, ok := bv.(string)
		if !ok {
			return -1
		}
		return strings.Compare(strings.ToLower(x), strings.ToLower(y))
	}
	if bv != nil {
		return 1
	}
	return 0
}

// resolve reads a JSONPath of the form $.a.b or $.a[*].b. Leaf arrays are
// flattened.
func resolve(doc any, path string) []any {
	path = strings.TrimPrefix(strings.TrimPrefix(path, "$"), ".")
	cur := []any{doc}
	if path != "" {
		for _, seg := range strings.Split(path, ".") {
			name, wildcard := strings.CutSuffix(seg, "[*]")
			var next []any
			for _, v := range cur {
				m, ok := v.(map[string]any)
				if !ok {
					continue
				}
				x, ok := m[name]
				if !ok {
					continue
				}
				if arr, isArr := x.([]any); isArr && wildcard {
					next = append(next, arr...)
				} else {
					next = append(next, x)
				}
			}
			cur = next
		}
	}

	var out []any
	for _, v := range cur {
		if arr, ok := v.([]any); ok {
			out = append(out, arr...)
		} else if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func first(vs []any) any {
	if len(vs) == 0 {
		return nil
	}
	return vs[0]
}

func tagOf(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	return "", false
}

func parseLonLat(s string) (lon, lat float64, ok bool) {
	ls, rs, found := strings.Cut(s, ",")
	if !found {
		return 0, 0, false
	}
	lon, err1 := strconv.ParseFloat(strings.TrimSpace(ls), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(rs), 64)
	return lon, lat, err1 == nil && err2 == nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
