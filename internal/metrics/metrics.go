// Package metrics holds the Prometheus collectors for familyfund.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts requests by route pattern, method and status.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "familyfund",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	// HTTPDuration observes request latency by route.
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "familyfund",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	// StoreCalls counts backing store calls by backend, operation and outcome.
	StoreCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "familyfund",
		Name:      "store_calls_total",
		Help:      "Store calls by backend, operation and outcome.",
	}, []string{"backend", "op", "outcome"})

	// StoreRetries counts retried store attempts.
	StoreRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "familyfund",
		Name:      "store_retries_total",
		Help:      "Store call attempts that were retried.",
	}, []string{"backend", "op"})

	// CacheLookups counts cache hits and misses by cache name.
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "familyfund",
		Name:      "cache_lookups_total",
		Help:      "Read cache lookups by cache and result.",
	}, []string{"cache", "result"})

	// Submissions counts contribution submissions by outcome.
	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "familyfund",
		Name:      "submissions_total",
		Help:      "Contribution submissions by outcome.",
	}, []string{"outcome"})

	// Logins counts login and sign-up attempts by kind and outcome.
	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "familyfund",
		Name:      "auth_attempts_total",
		Help:      "Login and sign-up attempts by kind and outcome.",
	}, []string{"kind", "outcome"})
)

// Registry holds every familyfund collector plus the Go and process
// collectors.
var Registry = newRegistry()

func newRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests,
		HTTPDuration,
		StoreCalls,
		StoreRetries,
		CacheLookups,
		Submissions,
		Logins,
	)
	return r
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
