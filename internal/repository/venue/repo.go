// Package venue is the sqlite-backed system of record for venues and courts.
package venue

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/db/sqlite"
	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/geo"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	"github.com/kailas-cloud/venuedex/internal/query/relational"
)

// DDL creates the venue tables. Every statement is idempotent.
var DDL = []string{
	`CREATE TABLE IF NOT EXISTS venues (
		id          TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL DEFAULT '',
		name        TEXT NOT NULL,
		slug        TEXT NOT NULL DEFAULT '',
		address     TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		lat         REAL,
		lon         REAL,
		published   INTEGER NOT NULL DEFAULT 0,
		price       REAL NOT NULL DEFAULT 0,
		rating      REAL NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS venues_created_at ON venues (created_at DESC, id)`,
	`CREATE INDEX IF NOT EXISTS venues_owner_id ON venues (owner_id)`,
	`CREATE TABLE IF NOT EXISTS courts (
		id       TEXT PRIMARY KEY,
		venue_id TEXT NOT NULL REFERENCES venues (id) ON DELETE CASCADE,
		name     TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		indoor   INTEGER NOT NULL DEFAULT 0,
		active   INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS courts_venue_id ON courts (venue_id)`,
}

var columns = []string{
	"id", "owner_id", "name", "slug", "address", "description", "lat", "lon",
	"published", "price", "rating", "created_at", "updated_at",
}

// Repo implements the venue read and write repositories.
type Repo struct {
	db *sqlite.Store
}

// New creates a venue repository.
func New(s *sqlite.Store) *Repo {
	return &Repo{db: s}
}

// Ping checks the database.
func (r *Repo) Ping(ctx context.Context) error {
	return wrap("ping", r.db.Ping(ctx))
}

// FindMany runs q and loads courts when q.IncludeRelations is set.
func (r *Repo) FindMany(ctx context.Context, q relational.Query) ([]domvenue.Venue, error) {
	rows, err := r.db.Query(ctx, sqlite.Select(q, columns))
	if err != nil {
		return nil, wrap("find venues", err)
	}
	defer rows.Close()

	out := []domvenue.Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("find venues", err)
	}

	if q.IncludeRelations && len(out) > 0 {
		if err := r.loadCourts(ctx, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Count returns the number of venues matching where.
func (r *Repo) Count(ctx context.Context, where relational.Predicate) (int, error) {
	n, err := r.db.QueryInt(ctx, sqlite.Count(domvenue.Table, where))
	if err != nil {
		return 0, wrap("count venues", err)
	}
	return n, nil
}

// FindUnique returns a venue with its courts, or domain.ErrNotFound.
func (r *Repo) FindUnique(ctx context.Context, id string) (*domvenue.Venue, error) {
	vs, err := r.FindMany(ctx, relational.Query{
		Table:            domvenue.Table,
		Where:            relational.Eq(sqlite.IDColumn, id),
		Take:             1,
		IncludeRelations: true,
	})
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, fmt.Errorf("venue %s: %w", id, domain.ErrNotFound)
	}
	return &vs[0], nil
}

// Exists reports whether a venue row exists.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.Count(ctx, relational.Eq(sqlite.IDColumn, id))
	return n > 0, err
}

// Scan streams venues matching where in id order, batch rows at a time, with
// courts loaded. Memory is bounded by one batch. fn's error stops the scan.
func (r *Repo) Scan(ctx context.Context, where relational.Predicate, batch int, fn func([]domvenue.Venue) error) error {
	if batch <= 0 {
		batch = 100
	}
	q := relational.Query{
		Table:            domvenue.Table,
		Where:            where,
		OrderBy:          []relational.Order{{Column: sqlite.IDColumn, Direction: spec.Asc}},
		Take:             batch,
		IncludeRelations: true,
	}
	for {
		vs, err := r.FindMany(ctx, q)
		if err != nil {
			return err
		}
		if len(vs) == 0 {
			return nil
		}
		if err := fn(vs); err != nil {
			return err
		}
		if len(vs) < batch {
			return nil
		}
		q.After = &relational.Anchor{Column: sqlite.IDColumn, Value: vs[len(vs)-1].ID}
		q.Skip = 1
	}
}

// Save inserts or replaces a venue and its courts in one transaction.
// Returns true when the venue was created.
func (r *Repo) Save(ctx context.Context, v *domvenue.Venue) (bool, error) {
	var created bool
	err := r.db.Tx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM venues WHERE id = ?`, v.ID).Scan(&n); err != nil {
			return sqlite.Classify(db.OpSQLQuery, err)
		}
		created = n == 0

		var lat, lon sql.NullFloat64
		if v.Location != nil {
			lat = sql.NullFloat64{Float64: v.Location.Lat, Valid: true}
			lon = sql.NullFloat64{Float64: v.Location.Lon, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO venues (`+strings.Join(columns, ", ")+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				owner_id = excluded.owner_id, name = excluded.name, slug = excluded.slug,
				address = excluded.address, description = excluded.description,
				lat = excluded.lat, lon = excluded.lon, published = excluded.published,
				price = excluded.price, rating = excluded.rating, updated_at = excluded.updated_at`,
			v.ID, v.OwnerID, v.Name, v.Slug, v.Address, v.Description, lat, lon,
			sqlite.Arg(v.Published), v.Price, v.Rating,
			v.CreatedAt.UnixMilli(), v.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			return sqlite.Classify(db.OpSQLExec, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM courts WHERE venue_id = ?`, v.ID); err != nil {
			return sqlite.Classify(db.OpSQLExec, err)
		}
		for _, c := range v.Courts {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO courts (id, venue_id, name, category, indoor, active) VALUES (?, ?, ?, ?, ?, ?)`,
				c.ID, v.ID, c.Name, c.Category, sqlite.Arg(c.Indoor), sqlite.Arg(c.Active))
			if err != nil {
				return sqlite.Classify(db.OpSQLExec, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, wrap("save venue "+v.ID, err)
	}
	return created, nil
}

// Delete removes a venue and its courts. Missing venues are domain.ErrNotFound.
func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.db.Exec(ctx, sqlite.Statement{SQL: `DELETE FROM venues WHERE id = ?`, Args: []any{id}})
	if err != nil {
		return wrap("delete venue "+id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("venue %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *Repo) loadCourts(ctx context.Context, vs []domvenue.Venue) error {
	ids := make([]any, len(vs))
	pos := make(map[string]int, len(vs))
	for i := range vs {
		ids[i] = vs[i].ID
		pos[vs[i].ID] = i
		vs[i].Courts = []domvenue.Court{}
	}

	q := relational.Query{
		Table: domvenue.CourtTable,
		Where: relational.In("venue_id", ids...),
		OrderBy: []relational.Order{
			{Column: "venue_id", Direction: spec.Asc},
			{Column: sqlite.IDColumn, Direction: spec.Asc},
		},
	}
	rows, err := r.db.Query(ctx, sqlite.Select(q, []string{"id", "venue_id", "name", "category", "indoor", "active"}))
	if err != nil {
		return wrap("load courts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domvenue.Court
		var venueID string
		if err := rows.Scan(&c.ID, &venueID, &c.Name, &c.Category, &c.Indoor, &c.Active); err != nil {
			return fmt.Errorf("scan court: %w", err)
		}
		if i, ok := pos[venueID]; ok {
			vs[i].Courts = append(vs[i].Courts, c)
		}
	}
	return wrap("load courts", rows.Err())
}

func scanVenue(rows *sql.Rows) (domvenue.Venue, error) {
	var (
		v                domvenue.Venue
		lat, lon         sql.NullFloat64
		created, updated int64
	)
	err := rows.Scan(&v.ID, &v.OwnerID, &v.Name, &v.Slug, &v.Address, &v.Description,
		&lat, &lon, &v.Published, &v.Price, &v.Rating, &created, &updated)
	if err != nil {
		return domvenue.Venue{}, err
	}
	if lat.Valid && lon.Valid {
		v.Location = &geo.Point{Lat: lat.Float64, Lon: lon.Float64}
	}
	v.CreatedAt = time.UnixMilli(created).UTC()
	v.UpdatedAt = time.UnixMilli(updated).UTC()
	return v, nil
}

// wrap adds context and maps temporary failures to domain.ErrBackendUnavailable.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if db.IsTemporary(err) {
		return domain.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
