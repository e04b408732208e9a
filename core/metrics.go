package core

import (
	"sync"

	"github.com/Comcast/ocdrules/catalog"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for an Engine.  A nil
// *Metrics records nothing.
type Metrics struct {
	steps      prometheus.Counter
	relations  *prometheus.CounterVec
	rejections prometheus.Counter
	violations prometheus.Counter
	derived    *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the engine metrics against the provided
// registerer.  When the registerer is nil the default Prometheus
// registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	steps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ocd_steps_total",
		Help: "Evaluation passes run by the configuration engine.",
	})
	relations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocd_relations_total",
		Help: "Relations evaluated, partitioned by kind and outcome.",
	}, []string{"kind", "outcome"})
	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ocd_rejections_total",
		Help: "Property changes rejected.",
	})
	violations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ocd_violations_total",
		Help: "Constraint violations found at the end of evaluation passes.",
	})
	derived := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocd_derivations_total",
		Help: "Derivations of pricing, packaging, tax and bill-of-items data by usage.",
	}, []string{"usage"})
	registerer.MustRegister(steps, relations, rejections, violations, derived)
	return &Metrics{
		steps:      steps,
		relations:  relations,
		rejections: rejections,
		violations: violations,
		derived:    derived,
	}
}

func (m *Metrics) step() {
	if m == nil {
		return
	}
	m.steps.Inc()
}

func (m *Metrics) relation(k catalog.Kind, outcome string) {
	if m == nil {
		return
	}
	m.relations.WithLabelValues(string(k), outcome).Inc()
}

func (m *Metrics) rejected() {
	if m == nil {
		return
	}
	m.rejections.Inc()
}

func (m *Metrics) violated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.violations.Add(float64(n))
}

func (m *Metrics) derivation(u catalog.Usage) {
	if m == nil {
		return
	}
	m.derived.WithLabelValues(string(u)).Inc()
}
