package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "archviz"

// PrometheusHooks implements every hook interface by recording Prometheus
// metrics.
type PrometheusHooks struct {
	serializeDuration *prometheus.HistogramVec
	engineDuration    *prometheus.HistogramVec
	artifactBytes     *prometheus.HistogramVec
	renders           *prometheus.CounterVec
	cacheEvents       *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	httpInFlight      prometheus.Gauge
}

// NewPrometheusHooks creates the collectors and registers them with reg.
// It panics if any collector is already registered, like
// prometheus.MustRegister.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	h := &PrometheusHooks{
		serializeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "serialize_duration_seconds",
			Help:      "Time spent converting diagrams to DOT.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"status"}),
		engineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_duration_seconds",
			Help:      "Time spent in the layout engine per output format.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"engine", "format", "status"}),
		artifactBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_bytes",
			Help:      "Size of rendered artifacts.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"format"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Completed diagram renders.",
		}, []string{"status"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Artifact cache lookups and writes.",
		}, []string{"type", "event"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
	}
	reg.MustRegister(
		h.serializeDuration, h.engineDuration, h.artifactBytes, h.renders,
		h.cacheEvents, h.httpRequests, h.httpDuration, h.httpInFlight,
	)
	return h
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (h *PrometheusHooks) OnSerialize(_ context.Context, _ string, _, _ int, d time.Duration, err error) {
	h.serializeDuration.WithLabelValues(status(err)).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnEngineStart(context.Context, string, string) {}

func (h *PrometheusHooks) OnEngineComplete(_ context.Context, engine, format string, size int, d time.Duration, err error) {
	h.engineDuration.WithLabelValues(engine, format, status(err)).Observe(d.Seconds())
	if err == nil {
		h.artifactBytes.WithLabelValues(format).Observe(float64(size))
	}
}

func (h *PrometheusHooks) OnRenderComplete(_ context.Context, _ string, _ []string, _ time.Duration, err error) {
	h.renders.WithLabelValues(status(err)).Inc()
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, _ int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string) {
	h.httpInFlight.Inc()
}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	h.httpInFlight.Dec()
	h.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	h.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ RenderHooks = (*PrometheusHooks)(nil)
	_ CacheHooks  = (*PrometheusHooks)(nil)
	_ HTTPHooks   = (*PrometheusHooks)(nil)
)
