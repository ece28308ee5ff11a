package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Rotation outcome labels.
const (
	outcomeRotated        = "rotated"
	outcomeInvalid        = "invalid"
	outcomeExpired        = "expired"
	outcomeDuplicate      = "duplicate"
	outcomeReplay         = "replay"
	outcomeInconsistent   = "inconsistent"
	outcomeStorageError   = "storage_error"
	outcomeCreationFailed = "creation_failed"
	outcomeOK             = "ok"
)

// Metrics counts session lifecycle outcomes. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	established  *prometheus.CounterVec
	rotations    *prometheus.CounterVec
	terminations *prometheus.CounterVec
}

// NewMetrics creates the session counters and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		established: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bff",
			Subsystem: "session",
			Name:      "established_total",
			Help:      "Sessions established by login or registration.",
		}, []string{"result"}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bff",
			Subsystem: "session",
			Name:      "rotations_total",
			Help:      "Refresh token rotations by outcome.",
		}, []string{"outcome"}),
		terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bff",
			Subsystem: "session",
			Name:      "terminations_total",
			Help:      "Logout requests by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.established, m.rotations, m.terminations)
	}
	return m
}

func (m *Metrics) establish(result string) {
	if m == nil {
		return
	}
	m.established.WithLabelValues(result).Inc()
}

func (m *Metrics) rotation(outcome string) {
	if m == nil {
		return
	}
	m.rotations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) termination(result string) {
	if m == nil {
		return
	}
	m.terminations.WithLabelValues(result).Inc()
}
