// Package search is the venue search-index repository: index lifecycle,
// document writes and raw queries over the db.Store facade.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/batch"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
)

// store is the consumer interface for the search index (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) []error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error)
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// Config locates the venue documents in the index.
type Config struct {
	IndexName string
	KeyPrefix string
	// Timeout bounds every round-trip; 0 disables it.
	Timeout time.Duration
}

// Repo implements the index side of the venue search gateway.
type Repo struct {
	store store
	cfg   Config
	def   *db.IndexDefinition
}

// New creates an index repository.
func New(s store, cfg Config) *Repo {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "venue:"
	}
	return &Repo{store: s, cfg: cfg, def: Definition(cfg.IndexName, cfg.KeyPrefix)}
}

// Definition is the FT schema of the venue document.
func Definition(name, prefix string) *db.IndexDefinition {
	return db.NewIndex(name).OnJSON().Prefix(prefix).
		Text("$.name").As("name").Weight(2).Sortable().
		Text("$.description").As("description").
		Text("$.address").As("address").
		Tag("$.slug").As("slug").
		Tag("$.ownerId").As("ownerId").
		Tag("$.published").As(domvenue.PublishedAttribute).
		Numeric("$.price").As("price").Sortable().
		Numeric("$.rating").As("rating").Sortable().
		Numeric("$.createdAt").As(domvenue.TieBreakAttribute).Sortable().
		Numeric("$.updatedAt").As("updatedAt").
		Geo("$.geo").As(domvenue.GeoAttribute).
		Tag("$.courts[*].category").As("courtCategory").
		Tag("$.courts[*].indoor").As("courtIndoor").
		Tag("$.courts[*].active").As("courtActive").
		MustBuild()
}

// IndexName returns the FT index name.
func (r *Repo) IndexName() string { return r.cfg.IndexName }

// EnsureIndex creates the index when it does not exist yet.
// Returns true when this call created it.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.store.CreateIndex(ctx, r.def)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, db.ErrIndexExists):
		return false, nil
	default:
		return false, wrap("create index "+r.cfg.IndexName, err)
	}
}

// Put upserts one document.
func (r *Repo) Put(ctx context.Context, doc domvenue.Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.store.JSONSet(ctx, r.key(doc.ID), "$", data); err != nil {
		return wrap("index venue "+doc.ID, err)
	}
	return nil
}

// PutMany upserts documents in one round-trip. The result has one slot per
// document, nil on success; a failed document does not affect the others.
func (r *Repo) PutMany(ctx context.Context, docs []domvenue.Document) []error {
	errs := make([]error, len(docs))
	items := make([]db.JSONSetItem, 0, len(docs))
	slot := make([]int, 0, len(docs))
	for i, d := range docs {
		data, err := d.Marshal()
		if err != nil {
			errs[i] = fmt.Errorf("marshal document: %w", err)
			continue
		}
		items = append(items, db.JSONSetItem{Key: r.key(d.ID), Path: "$", Data: data})
		slot = append(slot, i)
	}
	if len(items) == 0 {
		return errs
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	for j, err := range r.store.JSONSetMulti(ctx, items) {
		if err != nil {
			errs[slot[j]] = wrap("index", err)
		}
	}
	return errs
}

// Get returns the stored document or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domvenue.Document, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	raw, err := r.store.JSONGet(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domvenue.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return domvenue.Document{}, wrap("get document "+id, err)
	}
	return domvenue.UnmarshalDocument(unwrapRoot(raw))
}

// Delete removes a document. Removing a missing document succeeds.
func (r *Repo) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		return wrap("remove venue "+id, err)
	}
	return nil
}

// Search runs a query against the venue index.
func (r *Repo) Search(ctx context.Context, q db.SearchQuery) (*db.SearchResult, error) {
	q.IndexName = r.cfg.IndexName

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	res, err := r.store.Search(ctx, &q)
	if err != nil {
		return nil, wrap("search "+r.cfg.IndexName, err)
	}
	return res, nil
}

// Info returns index diagnostics.
func (r *Repo) Info(ctx context.Context) (*db.IndexInfo, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	info, err := r.store.IndexInfo(ctx, r.cfg.IndexName)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("index %s: %w", r.cfg.IndexName, domain.ErrNotFound)
		}
		return nil, wrap("index info", err)
	}
	return info, nil
}

// SaveReport persists the last full reindex report next to the index.
func (r *Repo) SaveReport(ctx context.Context, rep batch.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.store.Set(ctx, r.reportKey(), data); err != nil {
		return wrap("save reindex report", err)
	}
	return nil
}

// LoadReport returns the last full reindex report, or nil when no run has
// completed yet.
func (r *Repo) LoadReport(ctx context.Context) (*batch.Report, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	data, err := r.store.Get(ctx, r.reportKey())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, wrap("load reindex report", err)
	}
	var rep batch.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decode reindex report: %w", err)
	}
	return &rep, nil
}

func (r *Repo) key(id string) string { return r.cfg.KeyPrefix + id }

// reportKey lives outside the document prefix so the index never covers it.
func (r *Repo) reportKey() string { return "meta:" + r.cfg.IndexName + ":reindex" }

func (r *Repo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.cfg.Timeout)
}

// unwrapRoot strips the single-element array JSON.GET returns for "$".
func unwrapRoot(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "[") {
		return raw
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil || len(arr) != 1 {
		return raw
	}
	return arr[0]
}

// wrap adds context and maps temporary failures to domain.ErrBackendUnavailable.
func wrap(op string, err error) error {
	if db.IsTemporary(err) {
		return domain.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
