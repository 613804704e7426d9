package chi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
)

// filterPrefix marks field filters in the query string: f.<field>[_from|_to],
// f.<relation>.<field>.
const filterPrefix = "f."

// listParams are the query parameters shared by both listing endpoints.
type listParams struct {
	Q       *string
	Lat     *float64
	Lon     *float64
	Radius  *string
	Sort    *string
	Order   *string
	Page    *int
	Limit   *int
	Cursor  *string
	Include *string
}

// bindListParams reads the listing query string into spec.Params.
func bindListParams(r *http.Request) (spec.Params, error) {
	q := r.URL.Query()

	var lp listParams
	for name, dest := range map[string]any{
		"q": &lp.Q, "lat": &lp.Lat, "lon": &lp.Lon, "radius": &lp.Radius,
		"sort": &lp.Sort, "order": &lp.Order, "page": &lp.Page, "limit": &lp.Limit,
		"cursor": &lp.Cursor, "include": &lp.Include,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
			return spec.Params{}, domain.NewInputError(name, "invalid value")
		}
	}

	p := spec.Params{
		Term:    deref(lp.Q),
		Lat:     lp.Lat,
		Lon:     lp.Lon,
		Radius:  deref(lp.Radius),
		Sort:    deref(lp.Sort),
		Order:   deref(lp.Order),
		Page:    deref(lp.Page),
		Limit:   deref(lp.Limit),
		Cursor:  deref(lp.Cursor),
		Filters: filtersFromQuery(q),
	}
	if lp.Include != nil {
		for _, rel := range strings.Split(*lp.Include, ",") {
			if strings.TrimSpace(rel) == "courts" {
				p.IncludeRelations = true
			}
		}
	}
	return p, nil
}

// filtersFromQuery collects f.* parameters into a filter map. A comma list
// becomes a set; a dotted key addresses a relation field.
func filtersFromQuery(q url.Values) map[string]any {
	var out map[string]any
	for key, vals := range q {
		name, ok := strings.CutPrefix(key, filterPrefix)
		if !ok || name == "" || len(vals) == 0 {
			continue
		}
		if out == nil {
			out = map[string]any{}
		}

		var v any = vals[0]
		if parts := strings.Split(vals[0], ","); len(parts) > 1 {
			v = parts
		}

		rel, fieldName, nested := strings.Cut(name, ".")
		if !nested {
			out[name] = v
			continue
		}
		m, _ := out[rel].(map[string]any)
		if m == nil {
			m = map[string]any{}
			out[rel] = m
		}
		m[fieldName] = v
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
