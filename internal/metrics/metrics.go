package metrics

// Prometheus collectors shared by the poller, reconciler and API

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is served on /metrics. A private registry keeps tests free of
// duplicate-registration panics from the default one.
var Registry = prometheus.NewRegistry()

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gm_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	AuthRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_auth_rejections_total",
			Help: "Total number of unauthorized requests",
		},
		[]string{"reason"},
	)

	PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_contract_polls_total",
			Help: "Contract polls by chain and outcome (applied, stale, error)",
		},
		[]string{"chain", "result"},
	)
	LastPollTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gm_contract_last_poll_timestamp_seconds",
			Help: "Unix time of the last applied poll",
		},
		[]string{"chain"},
	)
	TodaysActions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gm_todays_actions",
			Help: "todaysGMCount reported by the contract",
		},
		[]string{"chain"},
	)

	ProfileBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_profile_batches_total",
			Help: "Profile batch lookups by outcome (issued, gated, discarded)",
		},
		[]string{"result"},
	)
	ProfileCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gm_profile_cache_lookups_total",
			Help: "Profile cache lookups by outcome (hit, miss)",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AuthRejections,
		PollsTotal,
		LastPollTimestamp,
		TodaysActions,
		ProfileBatches,
		ProfileCacheLookups,
	)
}
