// Package telemetry exposes Prometheus metrics for pipeline runs.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/threader/models"
)

const namespace = "threader"

// Metrics owns its registry so several instances (tests, embedded servers) can
// coexist. A nil *Metrics records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	llmRequests   *prometheus.CounterVec
	llmDuration   *prometheus.HistogramVec
	fetches       *prometheus.CounterVec
	chunks        prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome (ok or the failure kind).",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage", "outcome"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Language model calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of language model calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9),
		}, []string{"stage"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Article fetch attempts by outcome.",
		}, []string{"outcome"}),
		chunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunks_per_run",
			Help:      "Number of text chunks summarised per run.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
	}
	m.registry.MustRegister(
		m.runs, m.stageDuration, m.llmRequests, m.llmDuration, m.fetches, m.chunks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, outcome(err)).Observe(d.Seconds())
}

// ObserveRun counts a finished run; kind is empty for a successful one.
func (m *Metrics) ObserveRun(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "ok"
	}
	m.runs.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveFetch(err error) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveChunks(n int) {
	if m == nil {
		return
	}
	m.chunks.Observe(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Generator matches the LLM provider interface.
type Generator interface {
	Generate(ctx context.Context, prompt models.Prompt) (string, error)
}

type instrumented struct {
	next  Generator
	stage string
	m     *Metrics
}

// Instrument wraps a generator so every call is counted and timed under stage.
func (m *Metrics) Instrument(next Generator, stage string) Generator {
	if m == nil {
		return next
	}
	return &instrumented{next: next, stage: stage, m: m}
}

func (i *instrumented) Generate(ctx context.Context, prompt models.Prompt) (string, error) {
	start := time.Now()
	out, err := i.next.Generate(ctx, prompt)
	i.m.llmDuration.WithLabelValues(i.stage).Observe(time.Since(start).Seconds())
	i.m.llmRequests.WithLabelValues(i.stage, outcome(err)).Inc()
	return out, err
}
