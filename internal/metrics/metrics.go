// Package metrics exposes workflow counters to Prometheus.
package metrics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	registry        *prometheus.Registry
	steps           *prometheus.CounterVec
	classifications *prometheus.CounterVec
	classifyLatency prometheus.Histogram
	taskStatus      *prometheus.CounterVec
	events          *prometheus.CounterVec
}

// New creates the collectors on a private registry, so tests can build as many as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "youvisa_step_transitions_total",
				Help: "Session step transitions",
			},
			[]string{"from", "to"},
		),
		classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "youvisa_classifications_total",
				Help: "Classifier calls by outcome",
			},
			[]string{"outcome"},
		),
		classifyLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "youvisa_classification_duration_seconds",
				Help:    "Duration of classifier calls",
				Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		taskStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "youvisa_task_status_changes_total",
				Help: "Task status changes by target status",
			},
			[]string{"status"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "youvisa_events_total",
				Help: "Inbound events by kind and result",
			},
			[]string{"kind", "result"},
		),
	}
	m.registry.MustRegister(
		m.steps,
		m.classifications,
		m.classifyLatency,
		m.taskStatus,
		m.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEvent counts one handled inbound event. Kinds outside the known set
// share the "invalid" label.
func (m *Metrics) ObserveEvent(kind domain.EventKind, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	label := string(kind)
	if !kind.Valid() {
		label = "invalid"
	}
	m.events.WithLabelValues(label, result).Inc()
}

// Hooks returns lifecycle hooks that log each event and record it.
func (m *Metrics) Hooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("step",
				"user_id", e.UserID,
				"from", e.From,
				"to", e.To,
				"trigger", e.Trigger,
			)
			m.steps.WithLabelValues(stepLabel(e.From), stepLabel(e.To)).Inc()
		},
		OnClassification: func(ctx context.Context, e *domain.ClassificationEvent) {
			logger.Info("classification",
				"user_id", e.UserID,
				"task_id", e.TaskID,
				"kind", e.Outcome,
				"duration", e.Duration,
			)
			m.classifications.WithLabelValues(string(e.Outcome)).Inc()
			m.classifyLatency.Observe(e.Duration.Seconds())
		},
		OnTaskStatus: func(ctx context.Context, e *domain.TaskEvent) {
			logger.Info("task_status",
				"user_id", e.UserID,
				"task_id", e.TaskID,
				"status", e.Status,
			)
			m.taskStatus.WithLabelValues(string(e.Status)).Inc()
		},
	}
}

func stepLabel(s domain.Step) string {
	if s == domain.StepNone {
		return "none"
	}
	return string(s)
}
