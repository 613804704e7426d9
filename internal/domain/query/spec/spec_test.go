package spec

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/query/field"
)

func ptr(f float64) *float64 { return &f }

var testSchema = field.MustNew("venues", []field.Field{
	{Name: "id", Kind: field.String, Column: "id"},
	{Name: "published", Kind: field.Bool, Column: "published", IndexField: "published"},
	{Name: "price", Kind: field.Number, Column: "price", IndexField: "price"},
})

func searchSurface() Surface {
	return Surface{
		Name:         "search",
		DefaultLimit: 10,
		DefaultSort:  Sort{Field: Relevance, Direction: Desc},
		SortFields:   []SortField{Relevance, Distance, CreatedAt, Name, Price, Rating},
		Schema:       testSchema,
		AllowGeo:     true,
		MaxWindow:    10000,
	}
}

func listingSurface() Surface {
	return Surface{
		Name:         "listing",
		DefaultLimit: 20,
		DefaultSort:  Sort{Field: CreatedAt, Direction: Desc},
		SortFields:   []SortField{CreatedAt, Name, Price, Rating},
		Schema:       testSchema,
	}
}

func requireInputError(t *testing.T, err error, field string) {
	t.Helper()
	var ie *domain.InputError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InputError, got %v", err)
	}
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatal("InputError should unwrap to ErrInvalidInput")
	}
	if field != "" && ie.Field != field {
		t.Fatalf("InputError field = %q, want %q", ie.Field, field)
	}
}

func TestNew_Defaults(t *testing.T) {
	fs, err := New(Params{}, searchSurface())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Sort() != (Sort{Field: Relevance, Direction: Desc}) {
		t.Errorf("Sort() = %+v", fs.Sort())
	}
	p := fs.Page()
	if p.Mode != OffsetMode || p.Number != 1 || p.Limit != 10 || p.Offset() != 0 {
		t.Errorf("Page() = %+v", p)
	}
	if fs.Geo() != nil || fs.Term() != "" || len(fs.Conditions()) != 0 {
		t.Errorf("unexpected non-zero spec: %+v", fs)
	}

	ls, err := New(Params{}, listingSurface())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ls.Sort().Field != CreatedAt || ls.Page().Limit != 20 {
		t.Errorf("listing defaults: sort=%+v page=%+v", ls.Sort(), ls.Page())
	}
}

func TestNew_DistanceRequiresGeo(t *testing.T) {
	_, err := New(Params{Sort: "distance"}, searchSurface())
	requireInputError(t, err, "sort")

	fs, err := New(Params{Sort: "distance", Lat: ptr(10.7769), Lon: ptr(106.7009), Radius: "10km"}, searchSurface())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Sort() != (Sort{Field: Distance, Direction: Asc}) {
		t.Errorf("distance should default to asc, got %+v", fs.Sort())
	}
	if g := fs.Geo(); g == nil || g.RadiusMeters() != 10000 {
		t.Errorf("Geo() = %+v", g)
	}
}

func TestNew_GeoWithoutDistanceSort(t *testing.T) {
	fs, err := New(Params{Lat: ptr(1), Lon: ptr(2), Radius: "500m"}, searchSurface())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Sort().Field != Relevance {
		t.Errorf("geo alone should keep relevance sort, got %s", fs.Sort().Field)
	}
}

func TestNew_GeoErrors(t *testing.T) {
	tests := []struct {
		name  string
		p     Params
		field string
	}{
		{"lat only", Params{Lat: ptr(1), Radius: "1km"}, "geo"},
		{"out of range", Params{Lat: ptr(91), Lon: ptr(0), Radius: "1km"}, "geo"},
		{"no radius", Params{Lat: ptr(1), Lon: ptr(1)}, "radius"},
		{"bad radius", Params{Lat: ptr(1), Lon: ptr(1), Radius: "-3km"}, "radius"},
		{"radius alone", Params{Radius: "1km"}, "geo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.p, searchSurface())
			requireInputError(t, err, tt.field)
		})
	}
}

func TestNew_GeoNotAllowed(t *testing.T) {
	_, err := New(Params{Lat: ptr(1), Lon: ptr(1), Radius: "1km"}, listingSurface())
	requireInputError(t, err, "geo")
}

func TestNew_SortValidation(t *testing.T) {
	_, err := New(Params{Sort: "popularity"}, searchSurface())
	requireInputError(t, err, "sort")

	_, err = New(Params{Sort: "relevance"}, listingSurface())
	requireInputError(t, err, "sort")

	_, err = New(Params{Sort: "price", Order: "sideways"}, searchSurface())
	requireInputError(t, err, "order")

	fs, err := New(Params{Sort: "price", Order: "DESC"}, searchSurface())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Sort() != (Sort{Field: Price, Direction: Desc}) {
		t.Errorf("Sort() = %+v", fs.Sort())
	}

	fs, err = New(Params{Order: "asc"}, listingSurface())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Sort() != (Sort{Field: CreatedAt, Direction: Asc}) {
		t.Errorf("order without sort should flip default, got %+v", fs.Sort())
	}
}

func TestNew_Limit(t *testing.T) {
	for _, limit := range []int{-1, 101, 1000} {
		_, err := New(Params{Limit: limit}, searchSurface())
		requireInputError(t, err, "limit")
	}
	for _, limit := range []int{1, 50, 100} {
		fs, err := New(Params{Limit: limit}, searchSurface())
		if err != nil {
			t.Fatalf("limit %d: %v", limit, err)
		}
		if fs.Page().Limit != limit {
			t.Errorf("limit = %d, want %d", fs.Page().Limit, limit)
		}
	}
}

func TestNew_Page(t *testing.T) {
	_, err := New(Params{Page: -2}, searchSurface())
	requireInputError(t, err, "page")

	fs, err := New(Params{Page: 3, Limit: 5}, searchSurface())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Page().Offset() != 10 {
		t.Errorf("Offset() = %d, want 10", fs.Page().Offset())
	}

	_, err = New(Params{Page: 200, Limit: 100}, searchSurface())
	requireInputError(t, err, "page")
}

func TestNew_CursorWins(t *testing.T) {
	fs, err := New(Params{Page: 4, Cursor: "30", Limit: 10}, searchSurface())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := fs.Page()
	if p.Mode != CursorMode || p.Cursor != "30" || p.Number != 0 || p.Offset() != 0 {
		t.Errorf("Page() = %+v", p)
	}
}

func TestNew_Filters(t *testing.T) {
	fs, err := New(Params{Filters: map[string]any{"published": true}}, searchSurface())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.Conditions()) != 1 {
		t.Fatalf("Conditions() = %d", len(fs.Conditions()))
	}

	_, err = New(Params{Filters: map[string]any{"color": "red"}}, searchSurface())
	requireInputError(t, err, "filter.color")

	_, err = New(Params{Filters: map[string]any{"published": true}}, Surface{Name: "bare", DefaultLimit: 10})
	requireInputError(t, err, "filter")
}

func TestNew_Term(t *testing.T) {
	fs, err := New(Params{Term: "  tennis  "}, searchSurface())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Term() != "tennis" {
		t.Errorf("Term() = %q", fs.Term())
	}
	_, err = New(Params{Term: strings.Repeat("a", MaxTermLength+1)}, searchSurface())
	requireInputError(t, err, "q")
}

func TestFilterSpec_Immutable(t *testing.T) {
	fs, err := New(Params{
		Filters: map[string]any{"published": true},
		Lat:     ptr(1),
		Lon:     ptr(1),
		Radius:  "1km",
	}, searchSurface())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conds := fs.Conditions()
	conds[0] = conds[len(conds)-1]
	_ = append(conds[:0], conds...)
	if len(fs.Conditions()) != 1 {
		t.Error("mutating Conditions() copy changed the spec")
	}
	g := fs.Geo()
	g.Center.Lat = 50
	if fs.Geo().Center.Lat != 1 {
		t.Error("mutating Geo() copy changed the spec")
	}
}

func TestNew_PageOverflow(t *testing.T) {
	tests := []struct {
		name    string
		surface Surface
		page    int
		limit   int
		ok      bool
	}{
		{"last page in window", searchSurface(), 100, 100, true},
		{"past window", searchSurface(), 101, 100, false},
		{"wraps past window", searchSurface(), math.MaxInt/10 + 2, 20, false},
		{"largest unbounded page", listingSurface(), math.MaxInt / 20, 20, true},
		{"unbounded overflow", listingSurface(), math.MaxInt/20 + 1, 20, false},
		{"max int page", listingSurface(), math.MaxInt, 1, true},
		{"max int page limit 2", listingSurface(), math.MaxInt, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := New(Params{Page: tt.page, Limit: tt.limit}, tt.surface)
			if !tt.ok {
				requireInputError(t, err, "page")
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if off := fs.Page().Offset(); off < 0 || off != (tt.page-1)*tt.limit {
				t.Errorf("Offset() = %d", off)
			}
		})
	}
}
