package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardgen_http_requests_total",
		Help: "HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardgen_generations_total",
		Help: "Card generation attempts by content type and result.",
	}, []string{"type", "result"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cardgen_generation_duration_seconds",
		Help:    "End to end card generation latency.",
		Buckets: prometheus.DefBuckets,
	})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardgen_webhook_events_total",
		Help: "Payment webhook notifications by event type.",
	}, []string{"event"})
)
