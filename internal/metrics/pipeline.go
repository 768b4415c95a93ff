package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "candex",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each search pipeline stage",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"stage"},
	)

	CacheResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candex",
			Name:      "cache_results_total",
			Help:      "Response cache outcomes",
		},
		[]string{"result"}, // "hit" / "miss" / "stale_invalid" / "write" / "write_error"
	)

	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candex",
			Name:      "upstream_requests_total",
			Help:      "Calls to external services by outcome",
		},
		[]string{"service", "status"}, // status: "success" / "error"
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "candex",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per service (0 closed, 1 half-open, 2 open)",
		},
		[]string{"service"},
	)

	ConsistencyDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "candex",
			Name:      "consistency_drops_total",
			Help:      "Vector-index matches dropped because the id was missing from the candidate store",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(CacheResultsTotal)
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(BreakerState)
	prometheus.MustRegister(ConsistencyDropsTotal)
	pipelineMetricsRegistered = true
}
