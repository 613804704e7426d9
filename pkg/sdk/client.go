package venuedex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/venuedex/internal/app"
	"github.com/kailas-cloud/venuedex/internal/domain/batch"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	healthuc "github.com/kailas-cloud/venuedex/internal/usecase/health"
	listinguc "github.com/kailas-cloud/venuedex/internal/usecase/listing"
	searchuc "github.com/kailas-cloud/venuedex/internal/usecase/search"
)

// Internal interfaces, swapped for fakes in tests.
type searchUseCase interface {
	Surface() spec.Surface
	Search(ctx context.Context, fs spec.FilterSpec) (searchuc.Page, error)
	GetByID(ctx context.Context, id string) (*domvenue.Document, error)
	IndexOne(ctx context.Context, id string) (string, error)
	Stats(ctx context.Context) (searchuc.Stats, error)
}

type listingUseCase interface {
	Surface() spec.Surface
	List(ctx context.Context, fs spec.FilterSpec) (listinguc.Page, error)
}

type venueUseCase interface {
	Create(ctx context.Context, v domvenue.Venue) (*domvenue.Venue, error)
	Update(ctx context.Context, id string, v domvenue.Venue) (*domvenue.Venue, error)
	Get(ctx context.Context, id string) (*domvenue.Venue, error)
	Delete(ctx context.Context, id string) error
}

type reindexUseCase interface {
	ReindexAll(ctx context.Context, filters map[string]any) (batch.Report, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the venuedex SDK entry point.
type Client struct {
	search  searchUseCase
	listing listingUseCase
	venues  venueUseCase
	reindex reindexUseCase
	health  healthUseCase
	closer  func()
	obs     *observer
}

// New connects to the index and the venue store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.index.Driver == "" {
		return nil, errors.New("venuedex: index required (use WithRedis or WithMemoryIndex)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg.serviceConfig(), nil)
	if err != nil {
		return nil, fmt.Errorf("venuedex: %w", err)
	}
	return &Client{
		search:  a.Search,
		listing: a.Listing,
		venues:  a.Venues,
		reindex: a.Reindex,
		health:  a.Health,
		closer:  a.Close,
		obs:     obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// HealthStatus represents the aggregated backend health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

// Health checks the index and the venue store.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// --- Queries ---

// Search runs a ranked, optionally geo-filtered query against the index.
func (c *Client) Search(ctx context.Context, q Query) (_ SearchPage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	fs, err := spec.New(q.params(), c.search.Surface())
	if err != nil {
		return SearchPage{}, err
	}
	return c.search.Search(ctx, fs)
}

// List reads venues straight from the store. Geo parameters are rejected.
func (c *Client) List(ctx context.Context, q Query) (_ ListPage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("list", start, err) }()

	fs, err := spec.New(q.params(), c.listing.Surface())
	if err != nil {
		return ListPage{}, err
	}
	return c.listing.List(ctx, fs)
}

// Get returns a venue from the store.
func (c *Client) Get(ctx context.Context, id string) (_ *Venue, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get", start, err) }()

	return c.venues.Get(ctx, id)
}

// Document returns the indexed document of a venue, or ErrNotFound.
func (c *Client) Document(ctx context.Context, id string) (_ *Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("document", start, err) }()

	doc, err := c.search.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, nil
}

// --- Writes ---

// Save creates v, or replaces the venue with the same ID, and updates the
// index. An index failure is logged, not returned: the store write stands
// and ReindexOne repairs the document.
func (c *Client) Save(ctx context.Context, v Venue) (_ *Venue, err error) {
	start := time.Now()
	defer func() { c.obs.observe("save", start, err) }()

	if v.ID == "" {
		return c.venues.Create(ctx, v)
	}
	out, err := c.venues.Update(ctx, v.ID, v)
	if errors.Is(err, ErrNotFound) {
		return c.venues.Create(ctx, v)
	}
	return out, err
}

// Delete removes a venue and its document.
func (c *Client) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete", start, err) }()

	return c.venues.Delete(ctx, id)
}

// --- Index ---

// ReindexOne rebuilds the document of one venue. A venue missing from the
// store has its document removed.
func (c *Client) ReindexOne(ctx context.Context, id string) (_ string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reindex_one", start, err) }()

	return c.search.IndexOne(ctx, id)
}

// ReindexAll rebuilds the documents of every venue matching filters (all
// venues when nil). Per-venue failures are listed in the report.
func (c *Client) ReindexAll(ctx context.Context, filters map[string]any) (_ Report, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reindex_all", start, err) }()

	return c.reindex.ReindexAll(ctx, filters)
}

// Stats returns index diagnostics.
func (c *Client) Stats(ctx context.Context) (_ Stats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("stats", start, err) }()

	return c.search.Stats(ctx)
}
