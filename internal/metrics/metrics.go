// Package metrics exposes Prometheus collectors for provider calls, imports and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "familybook"

var (
	// Registry holds every familybook collector plus the Go and process collectors.
	Registry = prometheus.NewRegistry()

	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "picker",
		Name:      "provider_requests_total",
		Help:      "Google Photos Picker API calls by operation and HTTP status.",
	}, []string{"op", "status"})

	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "oauth",
		Name:      "token_refreshes_total",
		Help:      "Access token refresh attempts by outcome.",
	}, []string{"outcome"})

	ImportedItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "items_total",
		Help:      "Picked media items processed by the importer, by kind and outcome.",
	}, []string{"kind", "outcome"})

	ImportedBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "bytes_total",
		Help:      "Bytes downloaded (original) and written (processed).",
	}, []string{"stage"})

	HTTPRequests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ProviderRequests,
		TokenRefreshes,
		ImportedItems,
		ImportedBytes,
		HTTPRequests,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// ObserveProvider counts one provider call. A zero status means the request never got a response.
func ObserveProvider(op string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	ProviderRequests.WithLabelValues(op, label).Inc()
}

// ObserveHTTP records one served request.
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
