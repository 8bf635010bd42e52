package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printwatch_http_requests_total",
			Help: "HTTP requests served by the status surface",
		},
		[]string{"path", "code"},
	)

	rateLimitRejects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "printwatch_http_rate_limit_rejects_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
