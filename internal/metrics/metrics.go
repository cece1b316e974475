package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "heartchat"

// Collector wraps the Prometheus metrics exposed by the chat pipeline.
// A nil *Collector is valid and records nothing, so services can be built without metrics in tests.
type Collector struct {
	registry *prometheus.Registry

	RepliesTotal       *prometheus.CounterVec
	GenerationFailures *prometheus.CounterVec
	GenerationRetries  prometheus.Counter
	GenerationDuration prometheus.Histogram
	HistoryWrites      *prometheus.CounterVec
}

// New creates a Collector backed by its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		RepliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Chat replies by source (canned or generated) and detected emotion",
		}, []string{"source", "emotion"}),
		GenerationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Generative responder failures replaced by an apology reply",
		}, []string{"reason"}),
		GenerationRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_retries_total",
			Help:      "Completions regenerated because the first output looked truncated",
		}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall time spent in the generative responder",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		}),
		HistoryWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_writes_total",
			Help:      "Conversation history inserts by outcome",
		}, []string{"status"}),
	}

	reg.MustRegister(
		c.RepliesTotal,
		c.GenerationFailures,
		c.GenerationRetries,
		c.GenerationDuration,
		c.HistoryWrites,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ReplySent(source, emotion string) {
	if c == nil {
		return
	}
	c.RepliesTotal.WithLabelValues(source, emotion).Inc()
}

func (c *Collector) GenerationFailed(reason string) {
	if c == nil {
		return
	}
	c.GenerationFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) GenerationRetried() {
	if c == nil {
		return
	}
	c.GenerationRetries.Inc()
}

func (c *Collector) ObserveGeneration(d time.Duration) {
	if c == nil {
		return
	}
	c.GenerationDuration.Observe(d.Seconds())
}

func (c *Collector) HistoryWritten(ok bool) {
	if c == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	c.HistoryWrites.WithLabelValues(status).Inc()
}
