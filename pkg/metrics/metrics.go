// Package metrics exposes Prometheus collectors for the cache controller and
// the dialogue engine, and the hooks that feed them.
package metrics

import (
	"context"
	"log/slog"

	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors of one process.
type Metrics struct {
	Intercepts  *prometheus.CounterVec
	WriteErrors prometheus.Counter
	Installs    *prometheus.CounterVec
	Activations prometheus.Counter
	NodeVisits  *prometheus.CounterVec
	Actions     *prometheus.CounterVec
	FreeText    prometheus.Counter
}

// New creates the collectors and registers them with reg.
// A nil reg skips registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Intercepts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carpintaria_cache_intercepts_total",
				Help: "Requests handled by the cache controller, by outcome",
			},
			[]string{"generation", "outcome"},
		),
		WriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carpintaria_cache_write_errors_total",
			Help: "Write-through failures swallowed by the cache controller",
		}),
		Installs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carpintaria_cache_installs_total",
				Help: "Generation installs, by result",
			},
			[]string{"generation", "result"},
		),
		Activations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carpintaria_cache_activations_total",
			Help: "Generations activated",
		}),
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carpintaria_chat_node_visits_total",
				Help: "Total number of node renders",
			},
			[]string{"node_id"},
		),
		Actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carpintaria_chat_actions_total",
				Help: "Selected options, by action kind",
			},
			[]string{"kind"},
		),
		FreeText: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carpintaria_chat_free_text_total",
			Help: "Free-text messages answered with the deflection",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Intercepts, m.WriteErrors, m.Installs, m.Activations,
			m.NodeVisits, m.Actions, m.FreeText)
	}
	return m
}

// CacheHooks records cache controller events and logs them at debug level.
func (m *Metrics) CacheHooks(logger *slog.Logger) domain.CacheHooks {
	return domain.CacheHooks{
		OnIntercept: func(ctx context.Context, e *domain.InterceptEvent) {
			m.Intercepts.WithLabelValues(e.Generation, e.Outcome).Inc()
			logger.Debug("intercept", "url", e.URL, "outcome", e.Outcome, "generation", e.Generation)
		},
		OnInstall: func(ctx context.Context, e *domain.GenerationEvent) {
			result := "ok"
			if e.Err != nil {
				result = "failed"
			}
			m.Installs.WithLabelValues(e.Generation, result).Inc()
			logger.Info("install", "generation", e.Generation, "entries", e.Entries, "error", e.Err)
		},
		OnActivate: func(ctx context.Context, e *domain.GenerationEvent) {
			m.Activations.Inc()
			logger.Info("activate", "generation", e.Generation, "evicted", e.Evicted)
		},
		OnWriteError: func(ctx context.Context, e *domain.InterceptEvent, err error) {
			m.WriteErrors.Inc()
		},
	}
}

// LifecycleHooks records dialogue events.
func (m *Metrics) LifecycleHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID).Inc()
			logger.Debug("node_enter", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnAction: func(ctx context.Context, e *domain.ActionEvent) {
			m.Actions.WithLabelValues(e.Kind).Inc()
			logger.Debug("action", "session_id", e.SessionID, "node_id", e.NodeID, "kind", e.Kind)
		},
		OnFreeText: func(ctx context.Context, e *domain.EventBase) {
			m.FreeText.Inc()
		},
	}
}
