package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/simkernel/internal/kernel"
)

// Metrics holds the prometheus collectors updated after every step.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	steps     prometheus.Counter
	commands  *prometheus.CounterVec
	entities  prometheus.Gauge
	relations prometheus.Gauge
	cycles    prometheus.Counter
}

// NewMetrics creates the engine collectors and registers them with reg.
// Panics if a collector with the same name is already registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simkernel",
			Name:      "steps_total",
			Help:      "Number of simulation steps executed.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simkernel",
			Name:      "commands_total",
			Help:      "Number of commands collected, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simkernel",
			Name:      "entities",
			Help:      "Number of live entities after the last step.",
		}),
		relations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simkernel",
			Name:      "relations",
			Help:      "Number of live relations after the last step.",
		}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simkernel",
			Name:      "state_cycles_total",
			Help:      "Number of runs in which the model revisited an earlier state.",
		}),
	}
	reg.MustRegister(m.steps, m.commands, m.entities, m.relations, m.cycles)
	return m
}

func (m *Metrics) observeStep(report kernel.StepReport, entities, relations int) {
	if m == nil {
		return
	}
	m.steps.Inc()
	for _, o := range report.Outcomes {
		m.commands.WithLabelValues(string(o.Command.Kind()), outcomeLabel(o.Applied)).Inc()
	}
	m.entities.Set(float64(entities))
	m.relations.Set(float64(relations))
}

func (m *Metrics) observeCycle() {
	if m == nil {
		return
	}
	m.cycles.Inc()
}
