// Package metrics registers the Prometheus collectors. Everything is
// registered through promauto on the default registry; the /metrics
// endpoint is wired in the server when metrics are enabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by route, method and
	// status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_http_requests_total",
		Help: "HTTP requests handled, by route, method and status.",
	}, []string{"route", "method", "status"})

	// HTTPDuration observes request latency per route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billing_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// SalesPosted counts successfully posted sales.
	SalesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_sales_posted_total",
		Help: "Sales posted successfully.",
	})

	// SalesFailed counts sales rejected or rolled back.
	SalesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_sales_failed_total",
		Help: "Sales that failed validation or persistence.",
	})

	// WebhooksSent counts delivered sale notifications.
	WebhooksSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_webhooks_sent_total",
		Help: "Sale webhooks delivered.",
	})

	// WebhooksFailed counts webhook jobs that exhausted retries.
	WebhooksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_webhooks_failed_total",
		Help: "Sale webhooks abandoned after max attempts.",
	})
)
