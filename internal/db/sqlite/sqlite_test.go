package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	"github.com/kailas-cloud/venuedex/internal/query/relational"
)

var testDDL = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price REAL NOT NULL,
		published INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS parts (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		kind TEXT NOT NULL
	)`,
}

type item struct {
	id        string
	name      string
	price     float64
	published bool
	created   int64
	parts     []string
}

var items = []item{
	{"a", "Alpha Club", 10, true, 100, []string{"padel"}},
	{"b", "Beta 100% Court", 20, false, 200, []string{"tennis", "padel"}},
	{"c", "Gamma club", 20, true, 300, nil},
	{"d", "Delta", 20, true, 300, []string{"tennis"}},
	{"e", "Epsilon_x", 30, true, 50, nil},
}

func openTest(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"), testDDL...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		for _, it := range items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO items (id, name, price, published, created_at) VALUES (?, ?, ?, ?, ?)`,
				it.id, it.name, it.price, Arg(it.published), it.created); err != nil {
				return err
			}
			for i, k := range it.parts {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO parts (id, item_id, kind) VALUES (?, ?, ?)`,
					fmt.Sprintf("%s-%d", it.id, i), it.id, k); err != nil {
					return err
				}
			}
		}
		return nil
	})
	require.NoError(t, err)
	return s
}

func ids(t *testing.T, s *Store, q relational.Query) []string {
	t.Helper()
	rows, err := s.Query(context.Background(), Select(q, []string{"id"}))
	require.NoError(t, err)
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		out = append(out, id)
	}
	require.NoError(t, rows.Err())
	return out
}

var defaultOrder = []relational.Order{
	{Column: "created_at", Direction: spec.Desc},
	{Column: "id", Direction: spec.Asc},
}

// --- Render tests ---

func TestSelect_Render(t *testing.T) {
	st := Select(relational.Query{
		Table: "items",
		Where: relational.And(
			relational.Eq("published", true),
			relational.Contains("name", "50%"),
		),
		OrderBy: defaultOrder,
		Skip:    20,
		Take:    10,
	}, []string{"id", "name"})

	require.Equal(t,
		`SELECT items.id, items.name FROM items WHERE (items.published = ?) AND (items.name LIKE ? ESCAPE '\')`+
			` ORDER BY items.created_at DESC, items.id ASC LIMIT ? OFFSET ?`,
		st.SQL)
	require.Equal(t, []any{1, `%50\%%`, 10, 20}, st.Args)
}

func TestSelect_RenderKeyset(t *testing.T) {
	st := Select(relational.Query{
		Table:   "items",
		OrderBy: defaultOrder,
		After:   &relational.Anchor{Column: "id", Value: "c"},
		Skip:    1,
		Take:    2,
	}, []string{"id"})

	require.Contains(t, st.SQL, "items.created_at < (SELECT created_at FROM items WHERE id = ?)")
	require.Contains(t, st.SQL, "items.created_at = (SELECT created_at FROM items WHERE id = ?) AND items.id > (SELECT id FROM items WHERE id = ?)")
	require.Contains(t, st.SQL, ") OR items.id = ?")
	require.Equal(t, []any{"c", "c", "c", "c", 2, 1}, st.Args)
}

func TestCount_Render(t *testing.T) {
	st := Count("items", relational.Predicate{})
	require.Equal(t, "SELECT COUNT(*) FROM items WHERE 1=1", st.SQL)
	require.Empty(t, st.Args)
}

func TestArg(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	require.Equal(t, int64(1700000000000), Arg(ts))
	require.Equal(t, 1, Arg(true))
	require.Equal(t, 0, Arg(false))
	require.Equal(t, "x", Arg("x"))
}

// --- Query tests ---

func TestSelect_Filters(t *testing.T) {
	s := openTest(t)

	tests := []struct {
		name  string
		where relational.Predicate
		want  []string
	}{
		{"all", relational.Predicate{}, []string{"c", "d", "b", "a", "e"}},
		{"eq bool", relational.Eq("published", false), []string{"b"}},
		{"eq is case-sensitive", relational.Eq("name", "delta"), []string{}},
		{"in", relational.In("id", "a", "e"), []string{"a", "e"}},
		{"range", relational.Between("price", 15.0, 25.0), []string{"c", "d", "b"}},
		{"open range", relational.Between("price", nil, 10.0), []string{"a"}},
		{"contains ignores case", relational.Contains("name", "CLUB"), []string{"c", "a"}},
		{"contains escapes wildcards", relational.Contains("name", "100%"), []string{"b"}},
		{"contains escapes underscore", relational.Contains("name", "n_x"), []string{"e"}},
		{
			"or",
			relational.Or(relational.Eq("id", "a"), relational.Eq("id", "b")),
			[]string{"b", "a"},
		},
		{
			"some",
			relational.Some(relational.Join{Table: "parts", ForeignKey: "item_id"}, relational.Eq("kind", "tennis")),
			[]string{"d", "b"},
		},
		{
			"time range",
			relational.Between("created_at", time.UnixMilli(200), nil),
			[]string{"c", "d", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(t, s, relational.Query{Table: "items", Where: tt.where, OrderBy: defaultOrder, Take: 10})
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_Offset(t *testing.T) {
	s := openTest(t)
	got := ids(t, s, relational.Query{Table: "items", OrderBy: defaultOrder, Skip: 2, Take: 2})
	require.Equal(t, []string{"b", "a"}, got)
}

func TestSelect_KeysetWalk(t *testing.T) {
	s := openTest(t)
	orders := []relational.Order{
		{Column: "price", Direction: spec.Desc},
		{Column: "created_at", Direction: spec.Desc},
		{Column: "id", Direction: spec.Asc},
	}
	full := ids(t, s, relational.Query{Table: "items", OrderBy: orders, Take: 10})
	require.Equal(t, []string{"e", "c", "d", "b", "a"}, full)

	var walked []string
	var after *relational.Anchor
	for range len(items) {
		q := relational.Query{Table: "items", OrderBy: orders, Take: 2, After: after}
		if after != nil {
			q.Skip = 1
		}
		page := ids(t, s, q)
		if len(page) == 0 {
			break
		}
		walked = append(walked, page...)
		after = &relational.Anchor{Column: "id", Value: page[len(page)-1]}
	}
	require.Equal(t, full, walked)
}

func TestSelect_KeysetAnchorOutsideFilter(t *testing.T) {
	s := openTest(t)
	// b is unpublished; resuming after it must not drop the next published row.
	got := ids(t, s, relational.Query{
		Table:   "items",
		Where:   relational.Eq("published", true),
		OrderBy: defaultOrder,
		After:   &relational.Anchor{Column: "id", Value: "b"},
		Skip:    1,
		Take:    10,
	})
	require.Equal(t, []string{"a", "e"}, got)
}

func TestSelect_KeysetMissingAnchor(t *testing.T) {
	s := openTest(t)
	got := ids(t, s, relational.Query{
		Table:   "items",
		OrderBy: defaultOrder,
		After:   &relational.Anchor{Column: "id", Value: "zzz"},
		Skip:    1,
		Take:    10,
	})
	require.Empty(t, got)
}

func TestCount(t *testing.T) {
	s := openTest(t)
	n, err := s.QueryInt(context.Background(), Count("items", relational.Eq("published", true)))
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

// --- Store tests ---

func TestTx_Rollback(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := s.QueryInt(ctx, Count("items", relational.Predicate{}))
	require.NoError(t, err)
	require.Equal(t, len(items), n)
}

func TestForeignKeysCascade(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	_, err := s.Exec(ctx, Statement{SQL: `DELETE FROM items WHERE id = ?`, Args: []any{"b"}})
	require.NoError(t, err)

	n, err := s.QueryInt(ctx, Statement{SQL: `SELECT COUNT(*) FROM parts WHERE item_id = ?`, Args: []any{"b"}})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestQuery_SyntaxErrorIsNotTemporary(t *testing.T) {
	s := openTest(t)
	_, err := s.Query(context.Background(), Statement{SQL: "SELEC nonsense"})
	require.Error(t, err)

	var dbErr *db.Error
	require.ErrorAs(t, err, &dbErr)
	require.Equal(t, db.OpSQLQuery, dbErr.Op)
	require.False(t, db.IsTemporary(err))
}

func TestQueryInt_NoRowsPassesThrough(t *testing.T) {
	s := openTest(t)
	_, err := s.QueryInt(context.Background(), Statement{SQL: "SELECT price FROM items WHERE id = ?", Args: []any{"nope"}})
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPing(t *testing.T) {
	s := openTest(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestDSN(t *testing.T) {
	require.Equal(t,
		"/tmp/x.db?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		dsn("/tmp/x.db"))
	require.Contains(t, dsn("file:x.db?mode=memory"), "mode=memory&_pragma=journal_mode(WAL)")
}
