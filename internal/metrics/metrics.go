package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClassificationsTotal tracks server-side classifications by label and outcome
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edufilter_classifications_total",
			Help: "Total number of videos classified by the server",
		},
		[]string{"label", "outcome"},
	)

	// ModelCallsTotal tracks generateContent calls per model and result kind
	ModelCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edufilter_model_calls_total",
			Help: "Total number of language model calls",
		},
		[]string{"model", "result"},
	)

	// ModelLatency tracks language model call latency
	ModelLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edufilter_model_latency_seconds",
			Help:    "Language model call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	// BatchSize tracks the number of videos per classify request
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edufilter_batch_size",
			Help:    "Number of videos per batch",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	// HTTPRequestsTotal tracks inbound API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edufilter_http_requests_total",
			Help: "Total number of inbound HTTP requests",
		},
		[]string{"route", "status"},
	)

	// RateLimitedTotal tracks requests rejected by the per-installation limiter
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edufilter_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// AgentCacheLookups tracks agent cache hits and misses
	AgentCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edufilter_agent_cache_lookups_total",
			Help: "Agent cache lookups by result",
		},
		[]string{"result"},
	)

	// AgentCacheEvictions tracks capacity evictions
	AgentCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edufilter_agent_cache_evictions_total",
			Help: "Agent cache entries evicted for capacity",
		},
	)

	// AgentFlushesTotal tracks agent batch flushes by outcome
	AgentFlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edufilter_agent_flushes_total",
			Help: "Agent batch flushes by outcome",
		},
		[]string{"outcome"},
	)

	// AgentPending tracks videos waiting in the agent queue
	AgentPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edufilter_agent_pending_videos",
			Help: "Videos waiting for the next agent flush",
		},
	)

	// AgentBackoffActive is 1 while the agent is in its backoff window
	AgentBackoffActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edufilter_agent_backoff_active",
			Help: "Whether the agent is currently backing off (1) or not (0)",
		},
	)

	// DBConnectionPoolUsage tracks the percentage of DB connections in use
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edufilter_db_connection_pool_usage_percent",
			Help: "Percentage of database connections in use",
		},
	)
)
