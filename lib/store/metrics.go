package store

import "github.com/VictoriaMetrics/metrics"

// Operation counters, shared across store instances. Exposed through
// the metrics package's standard /metrics writer when the embedding
// application wires one up.
var (
	metricSets    = metrics.NewCounter("strata_store_sets_total")
	metricGets    = metrics.NewCounter("strata_store_gets_total")
	metricHits    = metrics.NewCounter("strata_store_hits_total")
	metricMisses  = metrics.NewCounter("strata_store_misses_total")
	metricRemoves = metrics.NewCounter("strata_store_removes_total")
	metricExpired = metrics.NewCounter("strata_store_expired_total")
	metricQueries = metrics.NewCounter("strata_store_queries_total")
)
