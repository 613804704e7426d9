// Package search is the venue search gateway: index-backed listing and the
// single-document and bulk index maintenance around it.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/batch"
	"github.com/kailas-cloud/venuedex/internal/domain/query/page"
	"github.com/kailas-cloud/venuedex/internal/domain/query/spec"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	"github.com/kailas-cloud/venuedex/internal/logger"
	"github.com/kailas-cloud/venuedex/internal/metrics"
	"github.com/kailas-cloud/venuedex/internal/query/relational"
	qsearch "github.com/kailas-cloud/venuedex/internal/query/search"
)

// Page is one page of venue search hits.
type Page = page.ResultPage[page.Hit[domvenue.Document]]

// Config holds the gateway settings.
type Config struct {
	// Driver labels metrics and stats ("redis", "memory").
	Driver       string
	DefaultLimit int
}

// Stats are index diagnostics.
type Stats struct {
	IndexName   string        `json:"indexName"`
	Driver      string        `json:"driver"`
	NumDocs     int           `json:"numDocs"`
	NumRecords  int           `json:"numRecords"`
	MemoryBytes int64         `json:"memoryBytes"`
	Indexing    bool          `json:"indexing"`
	Failures    int           `json:"failures"`
	StoreRows   int           `json:"storeRows"`
	LastReindex *batch.Report `json:"lastReindex,omitempty"`
}

// Service is the venue search gateway.
type Service struct {
	index   Index
	venues  VenueReader
	builder *qsearch.Builder
	decoder qsearch.Decoder[domvenue.Document]
	surface spec.Surface
	driver  string
}

// New creates the gateway.
func New(index Index, venues VenueReader, cfg Config) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	surface := domvenue.SearchSurface(cfg.DefaultLimit)
	return &Service{
		index:  index,
		venues: venues,
		builder: qsearch.NewBuilder(qsearch.Config{
			IndexName:      index.IndexName(),
			TextFields:     domvenue.TextFields,
			GeoField:       domvenue.GeoAttribute,
			SortAttributes: domvenue.SortAttributes,
			TieBreak:       domvenue.TieBreakAttribute,
			MaxWindow:      surface.MaxWindow,
			// public search never returns unpublished venues
			Required: []db.Clause{
				{Field: domvenue.PublishedAttribute, Kind: db.ClauseTag, Values: []string{"true"}},
			},
		}),
		decoder: qsearch.Decoder[domvenue.Document]{
			Unmarshal: domvenue.UnmarshalDocument,
			MaxWindow: surface.MaxWindow,
		},
		surface: surface,
		driver:  cfg.Driver,
	}
}

// Surface returns the request surface FilterSpecs must be normalized against.
func (s *Service) Surface() spec.Surface { return s.surface }

// Search runs an index-backed listing.
func (s *Service) Search(ctx context.Context, fs spec.FilterSpec) (Page, error) {
	start := time.Now()
	res, err := s.search(ctx, fs)
	metrics.SearchQueriesTotal.WithLabelValues(s.driver, metrics.Outcome(err)).Inc()
	metrics.SearchQueryDuration.WithLabelValues(s.driver).Observe(time.Since(start).Seconds())
	return res, err
}

func (s *Service) search(ctx context.Context, fs spec.FilterSpec) (Page, error) {
	q, err := s.builder.Build(fs)
	if err != nil {
		return Page{}, err
	}
	raw, err := s.index.Search(ctx, q)
	if err != nil {
		return Page{}, fmt.Errorf("search venues: %w", err)
	}
	return s.decoder.Decode(raw, q, fs)
}

// GetByID returns the indexed document, or nil when it is not indexed.
func (s *Service) GetByID(ctx context.Context, id string) (*domvenue.Document, error) {
	doc, err := s.index.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// IndexOne regenerates the document of one venue from the system of record.
// A venue that no longer exists is removed from the index instead. Running
// it twice against an unchanged row writes identical bytes.
func (s *Service) IndexOne(ctx context.Context, id string) (string, error) {
	v, err := s.venues.FindUnique(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		if err := s.RemoveOne(ctx, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("venue %s not found in store; removed from index", id), nil
	}
	if err != nil {
		return "", fmt.Errorf("load venue %s: %w", id, err)
	}

	doc, err := domvenue.ToDocument(*v)
	if err != nil {
		// an unindexable venue must not keep serving its previous document
		if rmErr := s.RemoveOne(ctx, id); rmErr != nil {
			logger.FromContext(ctx).Warn("stale document not removed", zap.String("venue_id", id), zap.Error(rmErr))
		}
		metrics.IndexWritesTotal.WithLabelValues("upsert", metrics.Outcome(err)).Inc()
		return "", fmt.Errorf("venue %s: %w", id, err)
	}

	err = s.index.Put(ctx, doc)
	metrics.IndexWritesTotal.WithLabelValues("upsert", metrics.Outcome(err)).Inc()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("venue %s indexed", id), nil
}

// RemoveOne deletes the document of one venue. Removing an absent document
// succeeds.
func (s *Service) RemoveOne(ctx context.Context, id string) error {
	err := s.index.Delete(ctx, id)
	metrics.IndexWritesTotal.WithLabelValues("remove", metrics.Outcome(err)).Inc()
	return err
}

// BulkIndex maps and writes venues in one batch. Every venue gets its own
// result; a failure never affects the other members of the batch.
func (s *Service) BulkIndex(ctx context.Context, venues []domvenue.Venue) []batch.Result {
	results := make([]batch.Result, len(venues))
	docs := make([]domvenue.Document, 0, len(venues))
	slot := make([]int, 0, len(venues))

	for i := range venues {
		doc, err := domvenue.ToDocument(venues[i])
		if err != nil {
			results[i] = batch.NewError(venues[i].ID, err)
			continue
		}
		docs = append(docs, doc)
		slot = append(slot, i)
	}

	for j, err := range s.index.PutMany(ctx, docs) {
		i := slot[j]
		if err != nil {
			results[i] = batch.NewError(venues[i].ID, err)
			continue
		}
		results[i] = batch.NewOK(venues[i].ID)
	}
	return results
}

// Stats returns index diagnostics with the relational row count and the
// last full reindex report.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st := Stats{IndexName: s.index.IndexName(), Driver: s.driver}

	info, err := s.index.Info(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("index info: %w", err)
	}
	st.NumDocs = info.NumDocs
	st.NumRecords = info.NumRecords
	st.MemoryBytes = info.MemoryBytes
	st.Indexing = info.Indexing
	st.Failures = info.Failures

	if st.StoreRows, err = s.venues.Count(ctx, relational.Predicate{}); err != nil {
		return Stats{}, fmt.Errorf("count venues: %w", err)
	}
	if st.LastReindex, err = s.index.LoadReport(ctx); err != nil {
		return Stats{}, err
	}
	return st, nil
}
