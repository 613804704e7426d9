// Package app wires venuedex components from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/venuedex/internal/changelog"
	natscl "github.com/kailas-cloud/venuedex/internal/changelog/nats"
	"github.com/kailas-cloud/venuedex/internal/config"
	"github.com/kailas-cloud/venuedex/internal/db"
	"github.com/kailas-cloud/venuedex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/venuedex/internal/db/redis"
	"github.com/kailas-cloud/venuedex/internal/db/sqlite"
	reposearch "github.com/kailas-cloud/venuedex/internal/repository/search"
	repovenue "github.com/kailas-cloud/venuedex/internal/repository/venue"
	healthuc "github.com/kailas-cloud/venuedex/internal/usecase/health"
	listinguc "github.com/kailas-cloud/venuedex/internal/usecase/listing"
	reindexuc "github.com/kailas-cloud/venuedex/internal/usecase/reindex"
	searchuc "github.com/kailas-cloud/venuedex/internal/usecase/search"
	venueuc "github.com/kailas-cloud/venuedex/internal/usecase/venue"
)

const defaultReadinessTimeout = 10 * time.Second

// App holds the wired use cases and the resources they own.
type App struct {
	Search  *searchuc.Service
	Listing *listinguc.Service
	Venues  *venueuc.Service
	Reindex *reindexuc.Service
	Health  *healthuc.Service

	index    db.Store
	store    *sqlite.Store
	nats     *natscl.Conn
	consumer *natscl.Consumer
	logger   *zap.Logger
}

// New connects to the backends and builds every use case.
// The caller owns the returned App and must Close it.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{logger: log}

	index, err := OpenIndex(ctx, cfg.Index)
	if err != nil {
		return nil, err
	}
	a.index = index
	log.Info("Connected to search index", zap.String("driver", cfg.Index.Driver))

	if a.store, err = sqlite.Open(ctx, cfg.Store.Path, repovenue.DDL...); err != nil {
		a.Close()
		return nil, fmt.Errorf("open venue store: %w", err)
	}
	log.Info("Opened venue store", zap.String("path", a.store.Path()))

	idx := reposearch.New(index, reposearch.Config{
		IndexName: cfg.Index.Name,
		KeyPrefix: cfg.Index.KeyPrefix,
		Timeout:   cfg.Index.Timeout(),
	})
	created, err := idx.EnsureIndex(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if created {
		log.Info("Created search index", zap.String("index", idx.IndexName()))
	}

	venues := repovenue.New(a.store)
	a.Search = searchuc.New(idx, venues, searchuc.Config{
		Driver:       cfg.Index.Driver,
		DefaultLimit: cfg.Pagination.SearchDefaultLimit,
	})
	a.Listing = listinguc.New(venues, cfg.Pagination.ListingDefaultLimit)
	a.Reindex = reindexuc.New(venues, a.Search, idx, reindexuc.Config{
		BatchSize:   cfg.Index.BatchSize,
		Concurrency: cfg.Index.Concurrency,
	})
	a.Health = healthuc.New(index, venues)

	hook, err := a.changelogHook(ctx, cfg.Changelog)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Venues = venueuc.New(venues, hook)
	return a, nil
}

// OpenIndex creates the search index store for the configured driver and
// waits until it answers.
func OpenIndex(ctx context.Context, cfg config.IndexConfig) (db.Store, error) {
	var store db.Store
	switch cfg.Driver {
	case config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Addrs, Password: cfg.Password})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		store = s
	case config.DriverMemory:
		store = memory.NewStore()
	default:
		return nil, fmt.Errorf("unknown index driver %q", cfg.Driver)
	}

	timeout := time.Duration(cfg.ReadinessTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultReadinessTimeout
	}
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("search index not ready: %w", err)
	}
	return store, nil
}

func (a *App) changelogHook(ctx context.Context, cfg config.ChangelogConfig) (changelog.Hook, error) {
	if cfg.Mode != config.ChangelogNATS {
		return changelog.NewInline(a.Search), nil
	}
	conn, err := natscl.Connect(ctx, natscl.Config{
		URL:     cfg.URL,
		Stream:  cfg.Stream,
		Subject: cfg.Subject,
		Durable: cfg.Durable,
	})
	if err != nil {
		return nil, err
	}
	a.nats = conn
	a.consumer = conn.Consumer(a.Search, a.logger)
	a.logger.Info("Publishing venue changes to NATS",
		zap.String("stream", cfg.Stream), zap.String("subject", cfg.Subject))
	return conn.Publisher(), nil
}

// Run applies queued venue changes to the index until ctx is done.
// It returns immediately when changes are applied inline.
func (a *App) Run(ctx context.Context) error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Run(ctx)
}

// Close releases every backend connection.
func (a *App) Close() {
	if a.nats != nil {
		a.nats.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Failed to close venue store", zap.Error(err))
		}
	}
	if a.index != nil {
		a.index.Close()
	}
}
