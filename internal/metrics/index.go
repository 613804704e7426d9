package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/venuedex/internal/domain"
)

// Search index Prometheus metrics.
var (
	SearchQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuedex",
			Name:      "search_queries_total",
			Help:      "Total number of listing queries",
		},
		[]string{"backend", "outcome"},
	)

	SearchQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "venuedex",
			Name:      "search_query_duration_seconds",
			Help:      "Listing query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"backend"},
	)

	IndexWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuedex",
			Name:      "index_writes_total",
			Help:      "Search index document writes",
		},
		[]string{"op", "outcome"}, // op: upsert / remove
	)

	ReindexDocumentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "venuedex",
			Name:      "reindex_documents_total",
			Help:      "Documents written by full reindex runs",
		},
	)

	ReindexErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "venuedex",
			Name:      "reindex_errors_total",
			Help:      "Entities that failed during full reindex runs",
		},
	)
)

func init() {
	prometheus.MustRegister(SearchQueriesTotal)
	prometheus.MustRegister(SearchQueryDuration)
	prometheus.MustRegister(IndexWritesTotal)
	prometheus.MustRegister(ReindexDocumentsTotal)
	prometheus.MustRegister(ReindexErrorsTotal)
}

// Register adds every collector to reg. Collectors already present are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		httpRequestDuration, httpRequestsTotal, httpRequestsInFlight,
		SearchQueriesTotal, SearchQueryDuration, IndexWritesTotal,
		ReindexDocumentsTotal, ReindexErrorsTotal,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// Outcome classifies an error into a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
