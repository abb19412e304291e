package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the intake interview engine.
type IntakeMetrics struct {
	turnsTotal    *prometheus.CounterVec
	hintTotal     *prometheus.CounterVec
	validityTotal *prometheus.CounterVec
	turnLatency   *prometheus.HistogramVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "engine",
			Name:      "turns_total",
			Help:      "Total conversation turns processed",
		}, []string{"phase", "status"}),
		hintTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "extractor",
			Name:      "hint_total",
			Help:      "Outcomes of optional hint-source calls",
		}, []string{"outcome"}),
		validityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "validity",
			Name:      "classifications_total",
			Help:      "Report validity classifications by result",
		}, []string{"result"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "engine",
			Name:      "turn_latency_seconds",
			Help:      "Latency of full turn processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.hintTotal, m.validityTotal, m.turnLatency)
	return m
}

func (m *IntakeMetrics) ObserveTurn(phase, status string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(phase, status).Inc()
}

func (m *IntakeMetrics) ObserveHint(outcome string) {
	if m == nil {
		return
	}
	m.hintTotal.WithLabelValues(outcome).Inc()
}

func (m *IntakeMetrics) ObserveValidity(result string) {
	if m == nil {
		return
	}
	m.validityTotal.WithLabelValues(result).Inc()
}

func (m *IntakeMetrics) ObserveTurnLatency(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(phase).Observe(seconds)
}
