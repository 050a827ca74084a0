package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RedirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affiliate_redirects_total",
			Help: "Referral redirects by outcome (redirected, not_found, error)",
		},
		[]string{"outcome"},
	)

	ClicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affiliate_clicks_total",
			Help: "Click events by write result (logged, dropped)",
		},
		[]string{"result"},
	)

	SlugCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affiliate_slug_cache_total",
			Help: "Slug cache lookups by result (hit, miss, stale, error)",
		},
		[]string{"result"},
	)

	PostbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affiliate_postbacks_total",
			Help: "Conversion postbacks by vendor and outcome",
		},
		[]string{"vendor", "outcome"},
	)

	EventsLoggedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affiliate_events_logged_total",
			Help: "Front-end interaction events persisted",
		},
	)

	DetachedTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affiliate_detached_task_seconds",
			Help:    "Run time of background tasks spawned after a response",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task"},
	)
)
