package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// Aggregation metrics
	ContestsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contests_fetched_total",
			Help: "Total number of contests fetched from upstream sources",
		},
		[]string{"source", "status"},
	)

	ContestsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contests_inserted_total",
			Help: "Total number of new contests persisted",
		},
	)

	// Enrichment metrics
	SolutionSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solution_searches_total",
			Help: "Total number of solution search attempts",
		},
		[]string{"result"}, // found, miss, error
	)

	EnrichmentBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_batches_total",
			Help: "Total number of enrichment batch runs",
		},
		[]string{"status"}, // completed, partial
	)
)
