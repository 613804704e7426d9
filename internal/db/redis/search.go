package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/venuedex/internal/db"
)

// Attributes produced by FT.AGGREGATE.
const (
	keyAttr      = "__key"
	scoreAttr    = "__score"
	distanceAttr = "__distance"
)

// Search runs a structured query. A sort with a single key uses FT.SEARCH.
// Distance sorts and sorts with a ThenBy key use FT.AGGREGATE, which takes
// several SORTBY keys, with a pipelined FT.SEARCH count for the total.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.SortByDistance || q.ThenBy != "" {
		return s.aggregate(ctx, q)
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(searchArgs(q)...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, opErr(db.OpSearch, err)
	}
	return parseScoredResult(raw)
}

func searchArgs(q *db.SearchQuery) []string {
	args := []string{q.IndexName, buildQuery(q), "WITHSCORES"}
	if q.SortBy != "" {
		args = append(args, "SORTBY", q.SortBy, direction(q.SortDesc))
	}
	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"RETURN", "1", db.JSONRootField,
		"DIALECT", "2",
	)
	return args
}

func (s *Store) aggregate(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	query := buildQuery(q)
	agg := s.b().Arbitrary("FT.AGGREGATE").Args(aggregateArgs(q, query)...).Build()
	count := s.b().Arbitrary("FT.SEARCH").Args(q.IndexName, query, "NOCONTENT", "LIMIT", "0", "0", "DIALECT", "2").Build()

	res := s.client.DoMulti(ctx, agg, count)

	rows, err := res[0].ToArray()
	if err != nil {
		return nil, opErr(db.OpAggregate, err)
	}
	countRaw, err := res[1].ToArray()
	if err != nil {
		return nil, opErr(db.OpSearch, err)
	}

	result, err := parseAggregateResult(rows)
	if err != nil {
		return nil, err
	}
	if len(countRaw) > 0 {
		total, err := countRaw[0].AsInt64()
		if err != nil {
			return nil, fmt.Errorf("parse count: %w", err)
		}
		result.Total = int(total)
	}
	return result, nil
}

func aggregateArgs(q *db.SearchQuery, query string) []string {
	args := []string{q.IndexName, query}
	scored := strings.TrimSpace(q.Text) != ""
	if scored {
		args = append(args, "ADDSCORES")
	}
	if q.SortByDistance {
		geoAttr := "@" + q.Geo.Field
		args = append(args,
			"LOAD", "3", "@"+keyAttr, geoAttr, db.JSONRootField,
			"APPLY", fmt.Sprintf("geodistance(%s,%s,%s)", geoAttr, formatFloat(q.Geo.Lon), formatFloat(q.Geo.Lat)),
			"AS", distanceAttr,
		)
	} else {
		args = append(args, "LOAD", "2", "@"+keyAttr, db.JSONRootField)
	}
	args = append(args, sortKeys(q, scored)...)
	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)
	return args
}

// sortKeys renders the aggregate SORTBY: the primary key (distance,
// attribute, or score when there is a term), then ThenBy descending.
func sortKeys(q *db.SearchQuery, scored bool) []string {
	var keys []string
	switch {
	case q.SortByDistance:
		keys = append(keys, "@"+distanceAttr, direction(q.SortDesc))
	case q.SortBy != "":
		keys = append(keys, "@"+q.SortBy, direction(q.SortDesc))
	case scored:
		keys = append(keys, "@"+scoreAttr, "DESC")
	}
	if q.ThenBy != "" {
		keys = append(keys, "@"+q.ThenBy, "DESC")
	}
	if len(keys) == 0 {
		return nil
	}
	return append([]string{"SORTBY", strconv.Itoa(len(keys))}, keys...)
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

// --- Query building ---

// buildQuery renders the FT query string: text, clauses and geo ANDed.
func buildQuery(q *db.SearchQuery) string {
	var parts []string

	if t := strings.TrimSpace(q.Text); t != "" {
		escaped := escapeQuery(t)
		if len(q.TextFields) > 0 {
			parts = append(parts, fmt.Sprintf("@%s:(%s)", strings.Join(q.TextFields, "|"), escaped))
		} else {
			parts = append(parts, "("+escaped+")")
		}
	}

	for i := range q.Clauses {
		parts = append(parts, buildClause(&q.Clauses[i]))
	}

	if g := q.Geo; g != nil {
		parts = append(parts, fmt.Sprintf("@%s:[%s %s %s m]",
			g.Field, formatFloat(g.Lon), formatFloat(g.Lat), formatFloat(g.RadiusMeters)))
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func buildClause(c *db.Clause) string {
	switch c.Kind {
	case db.ClauseTagContains:
		return fmt.Sprintf("@%s:{*%s*}", c.Field, tagEscaper.Replace(c.Values[0]))
	case db.ClauseNumeric:
		if len(c.Ranges) == 1 {
			return buildNumericFilter(c.Field, c.Ranges[0])
		}
		alts := make([]string, 0, len(c.Ranges))
		for _, r := range c.Ranges {
			alts = append(alts, buildNumericFilter(c.Field, r))
		}
		return "(" + strings.Join(alts, " | ") + ")"
	default:
		vals := make([]string, 0, len(c.Values))
		for _, v := range c.Values {
			vals = append(vals, tagEscaper.Replace(v))
		}
		return fmt.Sprintf("@%s:{%s}", c.Field, strings.Join(vals, " | "))
	}
}

func buildNumericFilter(key string, r db.NumericRange) string {
	minBound := "-inf"
	maxBound := "+inf"
	if r.Min != nil {
		minBound = formatFloat(*r.Min)
	}
	if r.Max != nil {
		maxBound = formatFloat(*r.Max)
	}
	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// --- Result parsing ---

// parseScoredResult reads a WITHSCORES reply.
func parseScoredResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/3)
	// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		score := asFloat(raw[i+1])

		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// parseAggregateResult reads [count, row1, row2, ...] where each row is a
// flat [name, value, ...] array.
func parseAggregateResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, len(raw)-1)
	for _, row := range raw[1:] {
		pairs, err := row.ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(pairs)

		entry := db.SearchEntry{Key: fields[keyAttr]}
		if sc, ok := fields[scoreAttr]; ok {
			if f, err := strconv.ParseFloat(sc, 64); err == nil {
				entry.Score = f
			}
		}
		delete(fields, keyAttr)
		delete(fields, scoreAttr)
		entry.Fields = fields
		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Escaping ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	"\\", "\\\\",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`,`, `\,`,
	`.`, `\.`,
	`/`, `\/`,
)
