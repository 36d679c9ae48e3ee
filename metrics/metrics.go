// Package metrics provides prometheus instrumentation for the auth session
// lifecycle. It implements authkit.Recorder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	authkit "github.com/voyagio/authkit-go"
)

// Metrics counts auth lifecycle outcomes. The zero-value-like instance
// returned by New(false) is a no-op, so callers never need nil checks.
type Metrics struct {
	enabled bool

	loginsTotal        prometheus.Counter
	loginFailuresTotal *prometheus.CounterVec
	refreshesTotal     *prometheus.CounterVec
	logoutsTotal       prometheus.Counter
	sessionActive      prometheus.Gauge
}

// compile-time check
var _ authkit.Recorder = (*Metrics)(nil)

// New creates the lifecycle metrics and registers them with the registerer
// (pass prometheus.DefaultRegisterer for the usual setup). If enabled is
// false, a no-op instance is returned and nothing is registered.
func New(enabled bool, reg prometheus.Registerer) *Metrics {
	m := &Metrics{enabled: enabled}
	if !enabled {
		return m
	}

	m.loginsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authkit_logins_total",
		Help: "Successful logins",
	})
	m.loginFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_login_failures_total",
		Help: "Failed logins by reason",
	}, []string{"reason"})
	m.refreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_refreshes_total",
		Help: "Token refreshes by result",
	}, []string{"result"})
	m.logoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authkit_logouts_total",
		Help: "Logouts, local or cross-instance",
	})
	m.sessionActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "authkit_session_active",
		Help: "1 while a session is persisted, 0 otherwise",
	})

	reg.MustRegister(
		m.loginsTotal,
		m.loginFailuresTotal,
		m.refreshesTotal,
		m.logoutsTotal,
		m.sessionActive,
	)
	return m
}

// LoginAttempt records a login outcome.
func (m *Metrics) LoginAttempt(success bool, reason string) {
	if !m.enabled {
		return
	}
	if success {
		m.loginsTotal.Inc()
		m.sessionActive.Set(1)
		return
	}
	m.loginFailuresTotal.WithLabelValues(reason).Inc()
}

// RefreshCompleted records a refresh outcome ("success", "adopted", "failed").
func (m *Metrics) RefreshCompleted(result string) {
	if !m.enabled {
		return
	}
	m.refreshesTotal.WithLabelValues(result).Inc()
	if result == "failed" {
		m.sessionActive.Set(0)
	}
}

// LogoutCompleted records a logout.
func (m *Metrics) LogoutCompleted() {
	if !m.enabled {
		return
	}
	m.logoutsTotal.Inc()
	m.sessionActive.Set(0)
}
