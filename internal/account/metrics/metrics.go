// Package metrics holds the Prometheus collectors of the account service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "biblenation"

type Metrics struct {
	registry *prometheus.Registry

	logins        *prometheus.CounterVec
	signups       prometheus.Counter
	gated         *prometheus.CounterVec
	notifications *prometheus.CounterVec
	resets        *prometheus.CounterVec
	emails        prometheus.Counter
	streams       prometheus.Gauge
	dropped       prometheus.Counter
}

// New registers every collector, plus the Go and process collectors, on a
// private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signups_total",
			Help:      "Accounts registered.",
		}),
		gated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gated_questions_total",
			Help:      "Gated question attempts by decision reason.",
		}, []string{"reason"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications queued by audience kind and type.",
		}, []string{"audience", "type"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_resets_total",
			Help:      "Password reset steps by step and outcome.",
		}, []string{"step", "outcome"}),
		emails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_logged_total",
			Help:      "Messages written to the outbound mail log.",
		}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_streams",
			Help:      "Open server-sent event streams.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events not delivered to a slow subscriber.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.logins, m.signups, m.gated, m.notifications, m.resets, m.emails, m.streams, m.dropped,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Login(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Signup() {
	if m != nil {
		m.signups.Inc()
	}
}

func (m *Metrics) GatedQuestion(reason string) {
	if m != nil {
		m.gated.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Notification(audience, kind string) {
	if m != nil {
		m.notifications.WithLabelValues(audience, kind).Inc()
	}
}

func (m *Metrics) PasswordReset(step, outcome string) {
	if m != nil {
		m.resets.WithLabelValues(step, outcome).Inc()
	}
}

func (m *Metrics) EmailLogged() {
	if m != nil {
		m.emails.Inc()
	}
}

func (m *Metrics) StreamOpened() {
	if m != nil {
		m.streams.Inc()
	}
}

func (m *Metrics) StreamClosed() {
	if m != nil {
		m.streams.Dec()
	}
}

func (m *Metrics) EventDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}
