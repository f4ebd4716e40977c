// v0
// internal/observability/metrics.go
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	ingestedTotal     *prometheus.CounterVec
	conflictsTotal    *prometheus.CounterVec
	resolutionsTotal  *prometheus.CounterVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	publishDuration   prometheus.Histogram
	publishErrors     prometheus.Counter
	cbState           *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ingestedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingested_records_total",
			Help: "Total records accepted per input stream.",
		}, []string{"stream"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conflicts_detected_total",
			Help: "Total conflicts surfaced by type and severity.",
		}, []string{"type", "severity"}),
		resolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resolutions_total",
			Help: "Total resolution outcomes by result (auto, manual, escalated, failed).",
		}, []string{"result"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits observed.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses observed.",
		}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "event_publish_duration_seconds",
			Help:    "Histogram of event-sink publish durations.",
			Buckets: prometheus.DefBuckets,
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "event_publish_errors_total",
			Help: "Total event-sink publish errors encountered.",
		}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cb_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"target"}),
	}

	prometheus.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.ingestedTotal,
		m.conflictsTotal,
		m.resolutionsTotal,
		m.cacheHits,
		m.cacheMisses,
		m.publishDuration,
		m.publishErrors,
		m.cbState,
	)

	m.cbState.WithLabelValues("events").Set(0)

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) Ingested(stream string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ingestedTotal.WithLabelValues(stream).Add(float64(n))
}

func (m *Metrics) ConflictDetected(conflictType, severity string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(conflictType, severity).Inc()
}

func (m *Metrics) ResolutionOutcome(result string) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) PublishObserved(duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.publishDuration.Observe(duration.Seconds())
	if !success {
		m.publishErrors.Inc()
	}
}

func (m *Metrics) SetCircuitBreakerState(target string, state float64) {
	if m == nil {
		return
	}
	m.cbState.WithLabelValues(target).Set(state)
}
