package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	RunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_runs_started_total",
			Help: "Total number of research runs started",
		},
	)

	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_runs_completed_total",
			Help: "Total number of research runs completed",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pokedex_run_duration_seconds",
			Help:    "Research run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	ResearchCycles = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pokedex_research_cycles",
			Help:    "Number of clarify/research/analyze cycles per run",
			Buckets: []float64{1, 2, 3},
		},
	)

	WorkersRun = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_research_workers_total",
			Help: "Total number of research workers executed",
		},
	)

	// Oracle metrics
	OracleCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_oracle_calls_total",
			Help: "Total oracle completions requested",
		},
		[]string{"phase", "status"},
	)

	OracleLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokedex_oracle_latency_seconds",
			Help:    "Oracle completion latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	// Tool dispatch metrics
	ToolDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_tool_dispatches_total",
			Help: "Total tool calls dispatched",
		},
		[]string{"tool", "status"},
	)

	// Data fetch metrics
	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_fetch_requests_total",
			Help: "Total upstream data fetch requests",
		},
		[]string{"upstream", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokedex_fetch_duration_seconds",
			Help:    "Upstream fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_fetch_cache_hits_total",
			Help: "Total data fetch cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_fetch_cache_misses_total",
			Help: "Total data fetch cache misses",
		},
	)

	// Ledger metrics
	StepsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_research_steps_total",
			Help: "Total research steps recorded",
		},
		[]string{"step_type", "status"},
	)
)
