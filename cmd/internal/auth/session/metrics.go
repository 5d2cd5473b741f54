package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts session events by operation and outcome.
type Metrics struct {
	events *prometheus.CounterVec
}

// NewMetrics registers the session counters on reg.
// A nil reg leaves the counters unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chai",
			Subsystem: "auth",
			Name:      "session_events_total",
			Help:      "Session operations by op and outcome.",
		}, []string{"op", "outcome"}),
	}
	if reg != nil {
		if err := reg.Register(m.events); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe implements Observer.
func (m *Metrics) Observe(op, outcome string) {
	m.events.WithLabelValues(op, outcome).Inc()
}
