// Package metrics counts what a generation run did, on a private Prometheus registry.
//
// The log record counter is fed by a slog.Handler wrapper, so the engine packages only log
// and never depend on Prometheus. The registry is pushed to a Pushgateway at the end of a
// CLI run, or scraped from the artifact server.
package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/tordrt/modelspec/internal/model"
)

// DefaultJob is the Pushgateway job name used when none is given
const DefaultJob = "modelspec"

// Metrics holds the run collectors
type Metrics struct {
	reg *prometheus.Registry

	logRecords *prometheus.CounterVec // modelspec_log_records_total
	entities   prometheus.Gauge       // modelspec_entities
	links      prometheus.Gauge       // modelspec_links
	artifacts  prometheus.Counter     // modelspec_artifacts_written_total
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		logRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelspec_log_records_total",
				Help: "Log records emitted, partitioned by level and kind (default, type, decode, exclude, link, schema).",
			},
			[]string{"level", "kind"},
		),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modelspec_entities",
			Help: "Entities in the last built graph, the OpenAPI sentinel excluded.",
		}),
		links: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modelspec_links",
			Help: "Links in the last built graph.",
		}),
		artifacts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modelspec_artifacts_written_total",
			Help: "Artifact files written; unchanged files are not counted.",
		}),
	}
	m.reg.MustRegister(m.logRecords, m.entities, m.links, m.artifacts)
	return m
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// ObserveGraph records the size of g
func (m *Metrics) ObserveGraph(g *model.Graph) {
	m.entities.Set(float64(len(g.Resources())))
	m.links.Set(float64(len(g.Links)))
}

// ArtifactsWritten adds n written files
func (m *Metrics) ArtifactsWritten(n int) {
	m.artifacts.Add(float64(n))
}

// Push sends the registry to the Pushgateway at url
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return fmt.Errorf("pushgateway URL is required")
	}
	if job == "" {
		job = DefaultJob
	}
	if err := push.New(url, job).Gatherer(m.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}

// Handler wraps next so every record is counted by level and kind before being handled.
// Records are counted even when next discards their level.
func (m *Metrics) Handler(next slog.Handler) slog.Handler {
	return &countingHandler{next: next, counter: m.logRecords}
}

type countingHandler struct {
	next    slog.Handler
	counter *prometheus.CounterVec
	kind    string
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *countingHandler) Handle(ctx context.Context, r slog.Record) error {
	kind := h.kind
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "kind" {
			kind = a.Value.String()
			return false
		}
		return true
	})
	if kind == "" {
		kind = "none"
	}
	h.counter.WithLabelValues(r.Level.String(), kind).Inc()

	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *countingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	kind := h.kind
	for _, a := range attrs {
		if a.Key == "kind" {
			kind = a.Value.String()
		}
	}
	return &countingHandler{next: h.next.WithAttrs(attrs), counter: h.counter, kind: kind}
}

func (h *countingHandler) WithGroup(name string) slog.Handler {
	return &countingHandler{next: h.next.WithGroup(name), counter: h.counter, kind: h.kind}
}
