package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/topoedit/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by the engine hooks.
type Metrics struct {
	Commands *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Entities *prometheus.CounterVec
	History  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg, if not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "topoedit_commands_total",
			Help: "Commands finished, by name and outcome.",
		}, []string{"command", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "topoedit_command_duration_seconds",
			Help:    "Duration of command execution.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		Entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "topoedit_entity_changes_total",
			Help: "Entities touched by committed commands, by transition.",
		}, []string{"transition"}),
		History: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "topoedit_history_moves_total",
			Help: "Undo and redo operations.",
		}, []string{"direction"}),
	}
	if reg != nil {
		reg.MustRegister(m.Commands, m.Duration, m.Entities, m.History)
	}
	return m
}

func status(e *domain.CommandEvent) string {
	switch {
	case e.Err != nil:
		return "failed"
	case e.Preview:
		return "preview"
	}
	return "committed"
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommandFinish: func(_ context.Context, e *domain.CommandEvent) {
			m.Commands.WithLabelValues(e.Command, status(e)).Inc()
			m.Duration.WithLabelValues(e.Command).Observe(e.Duration.Seconds())
			if e.Err != nil {
				return
			}
			for t, n := range e.Changes {
				m.Entities.WithLabelValues(t.String()).Add(float64(n))
			}
		},
		OnUndo: func(context.Context, *domain.CommandEvent) {
			m.History.WithLabelValues("undo").Inc()
		},
		OnRedo: func(context.Context, *domain.CommandEvent) {
			m.History.WithLabelValues("redo").Inc()
		},
	}
}

// LogHooks returns lifecycle hooks writing one debug line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	log := func(ctx context.Context, e *domain.CommandEvent) {
		attrs := []any{"command", e.Command, "id", e.CommandID}
		if e.Duration > 0 {
			attrs = append(attrs, "duration", e.Duration)
		}
		if e.Err != nil {
			attrs = append(attrs, "err", e.Err)
		}
		logger.DebugContext(ctx, string(e.Type), attrs...)
	}
	return domain.LifecycleHooks{
		OnCommandStart:  log,
		OnCommandFinish: log,
		OnUndo:          log,
		OnRedo:          log,
	}
}
