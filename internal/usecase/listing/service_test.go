package listing

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/venuedex/internal/db/sqlite"
	"github.com/kailas-cloud/venuedex/internal/domain/geo"
	"github.com/kailas-cloud/venuedex/internal/domain/query/page"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	repovenue "github.com/kailas-cloud/venuedex/internal/repository/venue"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestService seeds v0..v6; even ones are published, v3 is the tennis venue.
func newTestService(t *testing.T) (*Service, *repovenue.Repo) {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "venues.db"), repovenue.DDL...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	repo := repovenue.New(s)
	for i := range 7 {
		id := fmt.Sprintf("v%d", i)
		v := &domvenue.Venue{
			ID:        id,
			Name:      fmt.Sprintf("Venue %c", 'G'-i),
			Location:  &geo.Point{Lat: 10.7769, Lon: 106.7009},
			Published: i%2 == 0,
			CreatedAt: epoch.Add(time.Duration(i) * time.Minute),
			UpdatedAt: epoch,
			Courts:    []domvenue.Court{{ID: id + "-c1", Name: "Court 1", Category: "padel", Active: true}},
		}
		if i == 3 {
			v.Description = "Clay tennis courts"
		}
		_, err := repo.Save(context.Background(), v)
		require.NoError(t, err)
	}
	return New(repo, 0), repo
}

func list(t *testing.T, svc *Service, p spec.Params) Page {
	t.Helper()
	fs, err := spec.New(p, svc.Surface())
	require.NoError(t, err)
	res, err := svc.List(context.Background(), fs)
	require.NoError(t, err)
	return res
}

func ids(p Page) []string {
	out := make([]string, len(p.Data))
	for i, v := range p.Data {
		out[i] = v.ID
	}
	return out
}

// --- Offset mode ---

func TestList_Offset(t *testing.T) {
	svc, _ := newTestService(t)

	res := list(t, svc, spec.Params{Limit: 3})
	require.Equal(t, []string{"v6", "v5", "v4"}, ids(res))
	require.Equal(t, 7, res.Total)
	require.True(t, res.Meta.HasMore)
	require.NotNil(t, res.Meta.Offset)
	require.Equal(t, 0, *res.Meta.Offset)
	require.Equal(t, page.EncodeKey("v4"), *res.Meta.NextCursor)
	require.Nil(t, res.Data[0].Courts)

	res = list(t, svc, spec.Params{Limit: 3, Page: 3})
	require.Equal(t, []string{"v0"}, ids(res))
	require.False(t, res.Meta.HasMore)
	require.Nil(t, res.Meta.NextCursor)
}

func TestList_OffsetPastEnd(t *testing.T) {
	svc, _ := newTestService(t)

	res := list(t, svc, spec.Params{Limit: 5, Page: 4})
	require.Empty(t, res.Data)
	require.NotNil(t, res.Data)
	require.Equal(t, 7, res.Total)
	require.False(t, res.Meta.HasMore)
}

// --- Cursor mode ---

func TestList_CursorWalk(t *testing.T) {
	svc, _ := newTestService(t)

	res := list(t, svc, spec.Params{Limit: 2})
	seen := ids(res)
	for res.Meta.HasMore {
		res = list(t, svc, spec.Params{Limit: 2, Cursor: *res.Meta.NextCursor})
		require.Equal(t, 7, res.Total)
		seen = append(seen, ids(res)...)
	}
	require.Equal(t, []string{"v6", "v5", "v4", "v3", "v2", "v1", "v0"}, seen)
	require.Nil(t, res.Meta.NextCursor)
}

func TestList_CursorExactBoundary(t *testing.T) {
	svc, _ := newTestService(t)

	res := list(t, svc, spec.Params{Limit: 3, Cursor: page.EncodeKey("v3")})
	require.Equal(t, []string{"v2", "v1", "v0"}, ids(res))
	require.False(t, res.Meta.HasMore, "no extra row means no next page")
	require.Equal(t, page.EncodeKey("v3"), *res.Meta.Cursor)
}

func TestList_CursorMissingAnchorRestarts(t *testing.T) {
	svc, repo := newTestService(t)
	require.NoError(t, repo.Delete(context.Background(), "v5"))

	res := list(t, svc, spec.Params{Limit: 2, Cursor: page.EncodeKey("v5")})
	require.Equal(t, []string{"v6", "v4"}, ids(res))
	require.Equal(t, 6, res.Total)
}

func TestList_CursorMalformedRestarts(t *testing.T) {
	svc, _ := newTestService(t)

	res := list(t, svc, spec.Params{Limit: 2, Cursor: "%%%"})
	require.Equal(t, []string{"v6", "v5"}, ids(res))
	require.True(t, res.Meta.HasMore)
}

// --- Filters / sort / relations ---

func TestList_FilterWithRelations(t *testing.T) {
	svc, _ := newTestService(t)

	res := list(t, svc, spec.Params{
		Filters:          map[string]any{"published": true},
		IncludeRelations: true,
	})
	require.Equal(t, []string{"v6", "v4", "v2", "v0"}, ids(res))
	require.Equal(t, 4, res.Total)
	for _, v := range res.Data {
		require.Len(t, v.Courts, 1)
	}
}

func TestList_Term(t *testing.T) {
	svc, _ := newTestService(t)

	res := list(t, svc, spec.Params{Term: "TENNIS"})
	require.Equal(t, []string{"v3"}, ids(res))
}

func TestList_SortByName(t *testing.T) {
	svc, _ := newTestService(t)

	// names run G..A as ids run v0..v6
	res := list(t, svc, spec.Params{Sort: "name", Limit: 3})
	require.Equal(t, []string{"v6", "v5", "v4"}, ids(res))

	res = list(t, svc, spec.Params{Sort: "name", Order: "desc", Limit: 3})
	require.Equal(t, []string{"v0", "v1", "v2"}, ids(res))
}

func TestList_NoGeoOnListing(t *testing.T) {
	svc, _ := newTestService(t)
	lat, lon := 10.0, 106.0

	_, err := spec.New(spec.Params{Lat: &lat, Lon: &lon, Radius: "1km"}, svc.Surface())
	require.Error(t, err)
}
