// Package reindex rebuilds the venue search index from the system of record.
package reindex

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/venuedex/internal/domain/batch"
	domvenue "github.com/kailas-cloud/venuedex/internal/domain/venue"
	"github.com/kailas-cloud/venuedex/internal/logger"
	"github.com/kailas-cloud/venuedex/internal/metrics"
	"github.com/kailas-cloud/venuedex/internal/query/relational"
)

// Defaults.
const (
	DefaultBatchSize   = 200
	DefaultConcurrency = 4
)

// Config tunes a run.
type Config struct {
	// BatchSize is the number of venues read and written per round-trip.
	BatchSize int
	// Concurrency bounds the bulk writes in flight.
	Concurrency int
}

// Service runs full reindex passes.
type Service struct {
	venues  VenueScanner
	gateway Gateway
	reports ReportStore
	cfg     Config
	now     func() time.Time
}

// New creates a reindex service. reports may be nil.
func New(venues VenueScanner, gateway Gateway, reports ReportStore, cfg Config) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Service{venues: venues, gateway: gateway, reports: reports, cfg: cfg, now: time.Now}
}

// ReindexAll regenerates the documents of every venue matching filters (all
// venues when filters is empty).
//
// Per-venue failures, and a scan that breaks off midway, are reported in
// Report.Errors and never abort the run. The only error returned is an
// invalid filter, rejected before any backend call.
func (s *Service) ReindexAll(ctx context.Context, filters map[string]any) (batch.Report, error) {
	where, err := relational.Build(filters, domvenue.Schema)
	if err != nil {
		return batch.Report{}, err
	}

	rep := batch.Report{RunID: uuid.NewString(), StartedAt: s.now().UTC()}
	if len(filters) > 0 {
		b, _ := json.Marshal(filters)
		rep.Filter = string(b)
	}
	log := logger.FromContext(ctx).With(zap.String("run_id", rep.RunID))
	log.Info("reindex started", zap.String("filter", rep.Filter))

	var (
		mu      sync.Mutex
		batches [][]batch.Result
		g       errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)

	n := 0
	scanErr := s.venues.Scan(ctx, where, s.cfg.BatchSize, func(vs []domvenue.Venue) error {
		i := n
		n++
		mu.Lock()
		batches = append(batches, nil)
		mu.Unlock()

		vs = slices.Clone(vs)
		g.Go(func() error {
			res := s.gateway.BulkIndex(ctx, vs)
			mu.Lock()
			batches[i] = res
			mu.Unlock()
			return nil
		})
		return ctx.Err()
	})
	_ = g.Wait()

	rep.Errors = []string{}
	for _, results := range batches {
		for _, r := range results {
			if r.Status() == batch.StatusOK {
				rep.Indexed++
				continue
			}
			rep.Errors = append(rep.Errors, r.Message())
			log.Warn("venue not indexed", zap.String("venue_id", r.ID()), zap.Error(r.Err()))
		}
	}
	if scanErr != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("scan: %v", scanErr))
		log.Warn("venue scan aborted", zap.Error(scanErr))
	}
	rep.FinishedAt = s.now().UTC()

	metrics.ReindexDocumentsTotal.Add(float64(rep.Indexed))
	metrics.ReindexErrorsTotal.Add(float64(len(rep.Errors)))

	if s.reports != nil {
		// a run whose caller went away still leaves its report behind
		if err := s.reports.SaveReport(context.WithoutCancel(ctx), rep); err != nil {
			log.Warn("reindex report not saved", zap.Error(err))
		}
	}

	log.Info("reindex finished",
		zap.Int("indexed", rep.Indexed),
		zap.Int("errors", len(rep.Errors)),
		zap.Duration("duration", rep.Duration()),
	)
	return rep, nil
}
