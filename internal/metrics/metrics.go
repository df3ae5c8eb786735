// Package metrics exposes Prometheus counters for the auth flows. All
// methods are safe on a nil *Metrics so callers that do not care can pass
// nil.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	logins        *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	otpIssued     *prometheus.CounterVec
	otpConfirmed  *prometheus.CounterVec
	mailFailures  prometheus.Counter
	visibleDenied prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizadmin", Subsystem: "auth", Name: "logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizadmin", Subsystem: "auth", Name: "refreshes_total",
			Help: "Refresh attempts by outcome.",
		}, []string{"outcome"}),
		otpIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizadmin", Subsystem: "auth", Name: "otp_issued_total",
			Help: "Passcodes issued by purpose.",
		}, []string{"purpose"}),
		otpConfirmed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizadmin", Subsystem: "auth", Name: "otp_confirmations_total",
			Help: "Passcode confirmations by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		mailFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bizadmin", Subsystem: "auth", Name: "mail_dispatch_failures_total",
			Help: "Outbound emails that could not be handed off.",
		}),
		visibleDenied: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bizadmin", Subsystem: "authz", Name: "visibility_denied_total",
			Help: "User listings refused because every record was above the caller's level.",
		}),
	}
}

func (m *Metrics) Login(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Refresh(outcome string) {
	if m != nil {
		m.refreshes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) OTPIssued(purpose string) {
	if m != nil {
		m.otpIssued.WithLabelValues(purpose).Inc()
	}
}

func (m *Metrics) OTPConfirmed(purpose, outcome string) {
	if m != nil {
		m.otpConfirmed.WithLabelValues(purpose, outcome).Inc()
	}
}

func (m *Metrics) MailFailed() {
	if m != nil {
		m.mailFailures.Inc()
	}
}

func (m *Metrics) VisibilityDenied() {
	if m != nil {
		m.visibleDenied.Inc()
	}
}
