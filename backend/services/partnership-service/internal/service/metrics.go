package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts lead intake. A nil *Metrics records nothing.
type Metrics struct {
	submitted *prometheus.CounterVec
}

// NewMetrics registers lead counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evcharge",
			Subsystem: "partnership",
			Name:      "leads_submitted_total",
			Help:      "Partnership leads accepted from the public form.",
		}, []string{"property_type", "priority"}),
	}
	reg.MustRegister(m.submitted)
	return m
}

func (m *Metrics) incSubmitted(propertyType, priority string) {
	if m != nil {
		m.submitted.WithLabelValues(propertyType, priority).Inc()
	}
}
