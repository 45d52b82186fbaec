package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the session module.
type Metrics struct {
	// Logins started, by outcome
	Logins *prometheus.CounterVec

	// Step advancement attempts by step and outcome
	StepAdvances *prometheus.CounterVec

	// Sessions forcibly revoked after MPIN exhaustion
	MPINLockouts prometheus.Counter
}

// New creates a Metrics instance with all session module metrics registered.
func New() *Metrics {
	return &Metrics{
		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "canguard_session_logins_total",
			Help: "Total login attempts by outcome",
		}, []string{"outcome"}),

		StepAdvances: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "canguard_session_step_advances_total",
			Help: "Total authentication step advances by step and outcome",
		}, []string{"step", "outcome"}),

		MPINLockouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "canguard_session_mpin_lockouts_total",
			Help: "Sessions revoked after exhausting the MPIN retry budget",
		}),
	}
}

// IncrementLogin records a login attempt outcome.
func (m *Metrics) IncrementLogin(outcome string) {
	if m != nil {
		m.Logins.WithLabelValues(outcome).Inc()
	}
}

// IncrementStepAdvance records a step advancement outcome.
func (m *Metrics) IncrementStepAdvance(step, outcome string) {
	if m != nil {
		m.StepAdvances.WithLabelValues(step, outcome).Inc()
	}
}

// IncrementMPINLockout records a forced revocation.
func (m *Metrics) IncrementMPINLockout() {
	if m != nil {
		m.MPINLockouts.Inc()
	}
}
