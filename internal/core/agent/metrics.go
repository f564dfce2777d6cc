package agent

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeusync/behave/internal/core/bt"
	"github.com/zeusync/behave/internal/core/events/bus"
)

// Metrics turns runner events into prometheus series. It owns its registry
// so several managers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	ticks        *prometheus.CounterVec
	tickDuration prometheus.Histogram
	tickSteps    prometheus.Histogram
	completions  *prometheus.CounterVec
	nodeStarts   *prometheus.CounterVec
	nodeAborts   *prometheus.CounterVec
	agents       prometheus.Gauge

	subs []bus.Subscription
}

// NewMetrics creates the collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ticks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Tree ticks by resulting state.",
		}, []string{"state"}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent in one tree tick.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		tickSteps: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_steps",
			Help:      "Nodes entered per tick.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
		}),
		completions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tree_completions_total",
			Help:      "Root completions by result.",
		}, []string{"state"}),
		nodeStarts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_starts_total",
			Help:      "Node activations by node kind.",
		}, []string{"kind"}),
		nodeAborts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_aborts_total",
			Help:      "Node aborts by node kind.",
		}, []string{"kind"}),
		agents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents",
			Help:      "Agents currently managed.",
		}),
	}
}

// Attach subscribes the collectors to runner events on b.
func (m *Metrics) Attach(b bus.EventBus) error {
	handlers := map[string]bus.EventHandler{
		bt.EventTickCompleted: func(e bus.Event) error {
			ev, ok := e.Data().(bt.TickEvent)
			if !ok {
				return nil
			}
			m.ticks.WithLabelValues(ev.State.String()).Inc()
			m.tickDuration.Observe(ev.Elapsed)
			m.tickSteps.Observe(float64(ev.Steps))
			return nil
		},
		bt.EventTreeCompleted: m.onNode(func(ev bt.NodeEvent) { m.completions.WithLabelValues(ev.State.String()).Inc() }),
		bt.EventNodeStarted:   m.onNode(func(ev bt.NodeEvent) { m.nodeStarts.WithLabelValues(ev.Kind).Inc() }),
		bt.EventNodeAborted:   m.onNode(func(ev bt.NodeEvent) { m.nodeAborts.WithLabelValues(ev.Kind).Inc() }),
	}
	for typ, h := range handlers {
		sub, err := b.Subscribe(typ, h)
		if err != nil {
			return errors.Join(err, m.Detach())
		}
		m.subs = append(m.subs, sub)
	}
	return nil
}

func (m *Metrics) onNode(fn func(bt.NodeEvent)) bus.EventHandler {
	return func(e bus.Event) error {
		if ev, ok := e.Data().(bt.NodeEvent); ok {
			fn(ev)
		}
		return nil
	}
}

// Detach cancels every subscription made by Attach.
func (m *Metrics) Detach() error {
	var err error
	for _, s := range m.subs {
		err = errors.Join(err, s.Cancel())
	}
	m.subs = nil
	return err
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) setAgents(n int) {
	if m == nil {
		return
	}
	m.agents.Set(float64(n))
}
