package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts booking lifecycle events. A nil *Metrics records nothing.
type Metrics struct {
	created   prometheus.Counter
	conflicts prometheus.Counter
	refunds   prometheus.Counter
	expired   prometheus.Counter
}

// NewMetrics registers booking counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: "evcharge", Subsystem: "booking", Name: name, Help: help})
	}
	m := &Metrics{
		created:   counter("created_total", "Bookings created with a checkout session."),
		conflicts: counter("conflicts_total", "Booking attempts rejected because a slot was taken."),
		refunds:   counter("refunds_total", "Refunds issued on cancellation."),
		expired:   counter("expired_checkouts_total", "Pending bookings cancelled after their checkout expired."),
	}
	reg.MustRegister(m.created, m.conflicts, m.refunds, m.expired)
	return m
}

func (m *Metrics) incCreated() {
	if m != nil {
		m.created.Inc()
	}
}

func (m *Metrics) incConflict() {
	if m != nil {
		m.conflicts.Inc()
	}
}

func (m *Metrics) incRefund() {
	if m != nil {
		m.refunds.Inc()
	}
}

func (m *Metrics) addExpired(n int) {
	if m != nil {
		m.expired.Add(float64(n))
	}
}
