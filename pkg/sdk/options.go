package venuedex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/venuedex/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	index config.IndexConfig
	store string

	searchLimit  int
	listingLimit int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis indexes venues in a Redis 8+ instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.index.Driver = config.DriverRedis
		c.index.Addrs = []string{addr}
		c.index.Password = password
	})
}

// WithMemoryIndex keeps the index in process memory. It starts empty;
// call ReindexAll to fill it from the store.
func WithMemoryIndex() Option {
	return optionFunc(func(c *clientConfig) {
		c.index.Driver = config.DriverMemory
		c.index.Addrs = nil
	})
}

// WithIndex overrides the index name and document key prefix.
// Defaults: "venues-idx" and "venue:".
func WithIndex(name, keyPrefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.index.Name = name
		c.index.KeyPrefix = keyPrefix
	})
}

// WithSQLite sets the venue store path. Use ":memory:" for a throwaway store.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.store = path
	})
}

// WithReindex sets the reindex batch size and the number of batches indexed
// concurrently. Defaults: 200 and 4.
func WithReindex(batchSize, concurrency int) Option {
	return optionFunc(func(c *clientConfig) {
		c.index.BatchSize = batchSize
		c.index.Concurrency = concurrency
	})
}

// WithDefaultLimits sets the page size used when a Query has no Limit.
// Defaults: 10 for Search and 20 for List.
func WithDefaultLimits(search, listing int) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchLimit = search
		c.listingLimit = listing
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithMetrics registers SDK operation metrics and the gateway's query and
// index metrics on the given registerer. Pass nil to disable (default).
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// serviceConfig maps the options onto the service configuration.
func (c *clientConfig) serviceConfig() config.Config {
	cfg := config.Config{
		Index: c.index,
		Store: config.StoreConfig{Path: c.store},
		Pagination: config.PaginationConfig{
			SearchDefaultLimit:  c.searchLimit,
			ListingDefaultLimit: c.listingLimit,
		},
		Changelog: config.ChangelogConfig{Mode: config.ChangelogInline},
	}
	cfg.ApplyDefaults()
	return cfg
}
