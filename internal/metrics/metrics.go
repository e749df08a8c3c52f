package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "digitalcc"

// Search engine, harvest and response cache metrics.
var (
	EngineQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_query_duration_seconds",
			Help:      "Search engine round-trip duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"op"}, // "search" / "aggregate"
	)

	EngineErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Total failed search engine operations",
		},
		[]string{"op"},
	)

	HarvestObjectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvest_objects_total",
			Help:      "Objects visited by the harvester, by outcome",
		},
		[]string{"outcome"}, // indexed, updated, unchanged, constituent, unindexable, malformed
	)

	HarvestRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "harvest_run_duration_seconds",
			Help:      "Duration of harvest runs in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"kind", "status"}, // kind: collection / object / poll
	)

	FedoraRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fedora_requests_total",
			Help:      "Requests sent to the object store",
		},
		[]string{"op", "status"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_cache_total",
			Help:      "Response cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)
)

var registered bool

// Register registers the service metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(
		EngineQueryDuration,
		EngineErrorsTotal,
		HarvestObjectsTotal,
		HarvestRunDuration,
		FedoraRequestsTotal,
		CacheTotal,
	)
	registered = true
}
