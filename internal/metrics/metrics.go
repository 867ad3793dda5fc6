// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts in-memory cache hits per cache instance.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripfinder_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	// CacheMisses counts misses, including expired entries.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripfinder_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// CacheEvictions counts LRU evictions.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripfinder_cache_evictions_total",
			Help: "Total number of entries evicted to make room",
		},
		[]string{"cache"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tripfinder_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts state changes.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripfinder_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// UpstreamRequests counts upstream calls by service and result.
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripfinder_upstream_requests_total",
			Help: "Total number of upstream requests by service and result",
		},
		[]string{"service", "result"},
	)

	// StageOutcomes counts which strategy each search stage ended up using.
	StageOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripfinder_stage_outcomes_total",
			Help: "Total number of stage outcomes by stage and source",
		},
		[]string{"stage", "source"},
	)

	// SearchDuration observes end-to-end search latency.
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tripfinder_search_duration_seconds",
			Help:    "Search request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)
)
