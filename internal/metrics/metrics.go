// Package metrics exposes Prometheus collectors for the harvester service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	harvesterItemsTotal        *prometheus.CounterVec
	harvesterVerifiedTotal     *prometheus.CounterVec
	harvesterPageListAttempts  *prometheus.CounterVec
	harvesterFetchSeconds      prometheus.Histogram
	harvesterCurrentPage       prometheus.Gauge
	harvesterPhase             *prometheus.GaugeVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		harvesterItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_items_total",
				Help: "Total items harvested, labeled by category and outcome.",
			},
			[]string{"category", "outcome"},
		)

		harvesterVerifiedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_verified_total",
				Help: "Total records verified, labeled by result (kept/removed).",
			},
			[]string{"result"},
		)

		harvesterPageListAttempts = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_page_list_attempts_total",
				Help: "Total page listing attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		harvesterFetchSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "harvester_item_fetch_duration_seconds",
				Help:    "Histogram of per-item fetch latencies.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
		)

		harvesterCurrentPage = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_current_page",
				Help: "Search page the harvest cursor currently points at.",
			},
		)

		harvesterPhase = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "harvester_phase",
				Help: "Set to 1 for the active controller phase.",
			},
			[]string{"phase"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveItem counts one harvested item for category with the outcome
// ("harvested", "duplicate", "failed").
func ObserveItem(category string, outcome string) {
	harvesterItemsTotal.WithLabelValues(category, outcome).Inc()
}

// ObserveVerification counts one verification result ("kept" or "removed").
func ObserveVerification(result string) {
	harvesterVerifiedTotal.WithLabelValues(result).Inc()
}

// ObservePageList counts one page listing attempt ("ok", "empty", "error").
func ObservePageList(outcome string) {
	harvesterPageListAttempts.WithLabelValues(outcome).Inc()
}

// ObserveItemFetch records the duration of one item fetch.
func ObserveItemFetch(duration time.Duration) {
	harvesterFetchSeconds.Observe(duration.Seconds())
}

// SetCurrentPage records the harvest cursor position.
func SetCurrentPage(page int) {
	harvesterCurrentPage.Set(float64(page))
}

// SetPhase marks phase as active and all others inactive.
func SetPhase(phase string) {
	for _, p := range []string{"harvesting", "verifying", "idle"} {
		v := 0.0
		if p == phase {
			v = 1.0
		}
		harvesterPhase.WithLabelValues(p).Set(v)
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
