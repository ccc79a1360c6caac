// Package metrics exposes Prometheus collectors for the activity pipeline.
package metrics

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchTotal                 *prometheus.CounterVec
	fetchBytesTotal            *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	entriesTotal               *prometheus.CounterVec
	crawlPagesTotal            *prometheus.CounterVec
	duplicatesDroppedTotal     prometheus.Counter
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	quotaWaitsTotal            *prometheus.CounterVec
	quotaWaitSeconds           *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	lastRunTimestamp           prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_fetch_total",
				Help: "Total number of remote fetches, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "activity_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies, labeled by site.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		entriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_entries_total",
				Help: "Entries emitted by adapters, labeled by source type.",
			},
			[]string{"source_type"},
		)

		crawlPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_crawl_pages_total",
				Help: "Legacy crawl pages by final state.",
			},
			[]string{"state"},
		)

		duplicatesDroppedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "activity_merge_duplicates_dropped_total",
				Help: "Entries dropped by the merge because an earlier entry had the same link.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "activity_rate_limit_delays_seconds",
				Help:    "Histogram of per-host politeness wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		quotaWaitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_quota_waits_total",
				Help: "Cooperative waits triggered by a remote API quota header.",
			},
			[]string{"api"},
		)

		quotaWaitSeconds = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_quota_wait_seconds_total",
				Help: "Seconds spent waiting for a remote API quota reset.",
			},
			[]string{"api"},
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

		lastRunTimestamp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "activity_last_run_timestamp_seconds",
				Help: "Unix time of the last completed pipeline run.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one remote fetch.
func ObserveFetch(site, outcome string, bytesFetched int, duration time.Duration) {
	Init()
	sanitizedSite := SanitizeSite(site)
	fetchTotal.WithLabelValues(sanitizedSite, outcome).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
	if duration > 0 {
		fetchDurationSeconds.WithLabelValues(sanitizedSite).Observe(duration.Seconds())
	}
}

// ObserveEntries adds n emitted entries for a source type.
func ObserveEntries(sourceType string, n int) {
	Init()
	if n > 0 {
		entriesTotal.WithLabelValues(sourceType).Add(float64(n))
	}
}

// ObserveCrawlPage counts a crawled page in its final state.
func ObserveCrawlPage(state string) {
	Init()
	crawlPagesTotal.WithLabelValues(state).Inc()
}

// ObserveDuplicatesDropped counts entries shadowed during merge.
func ObserveDuplicatesDropped(n int) {
	Init()
	if n > 0 {
		duplicatesDroppedTotal.Add(float64(n))
	}
}

// ObserveRateLimitDelay records the duration of a politeness wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveQuotaWait records a cooperative quota wait against api.
func ObserveQuotaWait(api string, duration time.Duration) {
	Init()
	quotaWaitsTotal.WithLabelValues(api).Inc()
	quotaWaitSeconds.WithLabelValues(api).Add(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// MarkRunCompleted stamps the last-run gauge.
func MarkRunCompleted(at time.Time) {
	Init()
	lastRunTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	Init()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
