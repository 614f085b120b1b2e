package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitgo_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitgo_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	propagationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbitgo_propagation_duration_seconds",
			Help:    "Duration of batch propagation across the catalog.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	propagationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitgo_propagation_total",
			Help: "Per-object propagation outcomes.",
		},
		[]string{"result"},
	)

	propagationWorkersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitgo_propagation_workers_active",
			Help: "Configured propagation worker pool size.",
		},
	)

	detectionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbitgo_detection_duration_seconds",
			Help:    "Duration of a full conjunction screening pass.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	conjunctionsDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitgo_conjunctions_detected_total",
			Help: "Conjunctions retained by risk level.",
		},
		[]string{"risk"},
	)

	conjunctionCandidatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitgo_conjunction_candidates_total",
			Help: "Pairs that passed the screening radius.",
		},
	)

	catalogObjects = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orbitgo_catalog_objects",
			Help: "Objects in the current catalog by type.",
		},
		[]string{"type"},
	)

	catalogAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitgo_catalog_age_seconds",
			Help: "Age of the current catalog in seconds.",
		},
	)

	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitgo_cache_hits_total",
			Help: "Frame cache hits.",
		},
	)

	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitgo_cache_misses_total",
			Help: "Frame cache misses.",
		},
	)

	cacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitgo_cache_evictions_total",
			Help: "Frame cache entries evicted.",
		},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitgo_cache_entries",
			Help: "Frame cache entry count.",
		},
	)

	cacheSizeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitgo_cache_size_bytes",
			Help: "Estimated frame cache memory footprint.",
		},
	)

	cacheRegenerationErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitgo_cache_regeneration_errors_total",
			Help: "Frame generation failures in the cache worker.",
		},
	)

	cacheRegenerationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbitgo_cache_regeneration_duration_seconds",
			Help:    "Duration of frame generation and cutover rebuilds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	cacheGracePeriodActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitgo_cache_grace_period_active",
			Help: "1 while a catalog cutover rebuild is in progress.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitgo_stream_connections_total",
			Help: "SSE stream connection events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitgo_streams_active",
			Help: "Currently connected SSE streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitgo_stream_messages_total",
			Help: "SSE data messages sent.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitgo_stream_bytes_total",
			Help: "Bytes written to SSE streams.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitgo_stream_errors_total",
			Help: "SSE stream errors by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		propagationDurationSeconds,
		propagationTotal,
		propagationWorkersActive,
		detectionDurationSeconds,
		conjunctionsDetectedTotal,
		conjunctionCandidatesTotal,
		catalogObjects,
		catalogAgeSeconds,
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEvictionsTotal,
		cacheEntries,
		cacheSizeBytes,
		cacheRegenerationErrorsTotal,
		cacheRegenerationSeconds,
		cacheGracePeriodActive,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// knownRoutes are exact paths allowed as metric labels.
var knownRoutes = map[string]bool{
	"/":                        true,
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
	"/api/v1/objects":          true,
	"/api/v1/catalog/metadata": true,
	"/api/v1/catalog/seed":     true,
	"/api/v1/conjunctions":     true,
	"/api/v1/maneuver":         true,
	"/api/v1/cache/stats":      true,
	"/api/v1/stream/frames":    true,
}

// normalizeRoute collapses parameterized and unknown paths to fixed labels
// so scanner traffic cannot blow up label cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/propagate/") {
		return "/api/v1/propagate/{id}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

// RecordPropagation records one batch propagation pass.
func RecordPropagation(d time.Duration, success, failed int) {
	propagationDurationSeconds.Observe(d.Seconds())
	propagationTotal.WithLabelValues("success").Add(float64(success))
	propagationTotal.WithLabelValues("error").Add(float64(failed))
}

// SetPropagationWorkersActive publishes the worker pool size.
func SetPropagationWorkersActive(n int) {
	propagationWorkersActive.Set(float64(n))
}

// RecordDetection records one conjunction screening pass.
func RecordDetection(d time.Duration, candidates int) {
	detectionDurationSeconds.Observe(d.Seconds())
	conjunctionCandidatesTotal.Add(float64(candidates))
}

// IncConjunctionsDetected counts a retained conjunction by risk level.
func IncConjunctionsDetected(risk string) {
	conjunctionsDetectedTotal.WithLabelValues(risk).Inc()
}

// SetCatalogObjects publishes catalog population by type.
func SetCatalogObjects(satellites, debris int) {
	catalogObjects.WithLabelValues("satellite").Set(float64(satellites))
	catalogObjects.WithLabelValues("debris").Set(float64(debris))
}

// SetCatalogAge publishes the catalog age gauge.
func SetCatalogAge(seconds float64) {
	catalogAgeSeconds.Set(seconds)
}

// IncCacheHits counts a frame cache hit.
func IncCacheHits() { cacheHitsTotal.Inc() }

// IncCacheMisses counts a frame cache miss.
func IncCacheMisses() { cacheMissesTotal.Inc() }

// AddCacheEvictions counts evicted cache entries.
func AddCacheEvictions(n int) {
	cacheEvictionsTotal.Add(float64(n))
}

// SetCacheEntries publishes the cache entry count.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

// SetCacheSizeBytes publishes the estimated cache footprint.
func SetCacheSizeBytes(n int64) {
	cacheSizeBytes.Set(float64(n))
}

// IncCacheRegenerationErrors counts a failed frame generation.
func IncCacheRegenerationErrors() {
	cacheRegenerationErrorsTotal.Inc()
}

// ObserveCacheRegenerationDuration records frame generation latency.
func ObserveCacheRegenerationDuration(d time.Duration) {
	cacheRegenerationSeconds.Observe(d.Seconds())
}

// SetCacheGracePeriodActive flags an in-progress catalog cutover.
func SetCacheGracePeriodActive(active bool) {
	if active {
		cacheGracePeriodActive.Set(1)
		return
	}
	cacheGracePeriodActive.Set(0)
}

// IncStreamConnections counts connect/disconnect events.
func IncStreamConnections(event string) {
	streamConnectionsTotal.WithLabelValues(event).Inc()
}

// IncStreamsActive increments the active stream gauge.
func IncStreamsActive() { streamsActive.Inc() }

// DecStreamsActive decrements the active stream gauge.
func DecStreamsActive() { streamsActive.Dec() }

// IncStreamMessages counts an SSE data message.
func IncStreamMessages() { streamMessagesTotal.Inc() }

// AddStreamBytes counts bytes written to a stream.
func AddStreamBytes(n int64) {
	streamBytesTotal.Add(float64(n))
}

// IncStreamErrors counts a stream error by reason.
func IncStreamErrors(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}
