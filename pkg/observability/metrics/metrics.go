// Package metrics implements the observability hooks with Prometheus
// collectors and exposes them over HTTP.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/observability"
)

const namespace = "procmeta"

// Metrics holds the collectors behind every hook. Each instance owns its own
// registry so tests and embedded servers never collide on registration.
type Metrics struct {
	reg *prometheus.Registry

	parseTotal      *prometheus.CounterVec
	parseDuration   prometheus.Histogram
	resolveTotal    *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	resolvedNodes   prometheus.Counter
	renderTotal     *prometheus.CounterVec
	renderDuration  *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec

	httpInFlight *prometheus.GaugeVec
	httpTotal    *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpErrors   *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,

		parseTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_parsed_total",
			Help:      "BPMN documents parsed, by result.",
		}, []string{"result"}),
		parseDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_parse_duration_seconds",
			Help:      "Time spent parsing and indexing a BPMN document.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		}),
		resolveTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_resolved_total",
			Help:      "Processes whose node metadata was resolved, by result.",
		}, []string{"result"}),
		resolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_resolve_duration_seconds",
			Help:      "Time spent resolving the metadata of one process.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		resolvedNodes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_resolved_total",
			Help:      "Flow nodes whose metadata was resolved.",
		}),
		renderTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Rendered artifacts, by format and result.",
		}, []string{"format", "result"}),
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering an artifact.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"format"}),

		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by key type.",
		}, []string{"key_type"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by key type.",
		}, []string{"key_type"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type.",
		}, []string{"key_type"}),

		httpInFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}, []string{"route"}),
		httpTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Failed HTTP requests by error code.",
		}, []string{"route", "code"}),
	}
}

// Install registers m as the global pipeline, cache and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(pipelineHooks{m})
	observability.SetCacheHooks(cacheHooks{m})
	observability.SetHTTPHooks(httpHooks{m})
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// result labels an outcome; integrity failures are split out from other
// errors so dashboards can tell bad input from broken infrastructure.
func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.IsIntegrity(err):
		return "invalid"
	default:
		return "error"
	}
}

// =============================================================================
// Hook adapters
// =============================================================================

type pipelineHooks struct{ m *Metrics }

func (h pipelineHooks) OnParseStart(context.Context, string) {}

func (h pipelineHooks) OnParseComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	h.m.parseTotal.WithLabelValues(result(err)).Inc()
	h.m.parseDuration.Observe(d.Seconds())
}

func (h pipelineHooks) OnResolveStart(context.Context, string, int) {}

func (h pipelineHooks) OnResolveComplete(_ context.Context, _ string, nodes int, d time.Duration, err error) {
	h.m.resolveTotal.WithLabelValues(result(err)).Inc()
	h.m.resolveDuration.Observe(d.Seconds())
	if err == nil {
		h.m.resolvedNodes.Add(float64(nodes))
	}
}

func (h pipelineHooks) OnRenderStart(context.Context, string) {}

func (h pipelineHooks) OnRenderComplete(_ context.Context, format string, d time.Duration, err error) {
	h.m.renderTotal.WithLabelValues(format, result(err)).Inc()
	h.m.renderDuration.WithLabelValues(format).Observe(d.Seconds())
}

type cacheHooks struct{ m *Metrics }

func (h cacheHooks) OnCacheHit(_ context.Context, keyType string) {
	h.m.cacheHits.WithLabelValues(keyType).Inc()
}

func (h cacheHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.m.cacheMisses.WithLabelValues(keyType).Inc()
}

func (h cacheHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

type httpHooks struct{ m *Metrics }

func (h httpHooks) OnRequest(_ context.Context, _, route string) {
	h.m.httpInFlight.WithLabelValues(route).Inc()
}

func (h httpHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.m.httpInFlight.WithLabelValues(route).Dec()
	h.m.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (h httpHooks) OnError(_ context.Context, _, route, code string) {
	h.m.httpErrors.WithLabelValues(route, code).Inc()
}

var (
	_ observability.PipelineHooks = pipelineHooks{}
	_ observability.CacheHooks    = cacheHooks{}
	_ observability.HTTPHooks     = httpHooks{}
)
