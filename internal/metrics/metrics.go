// Package metrics holds the Prometheus collectors of one broadcast session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tamzrod/broadcast-bridge/internal/status"
)

// Metrics is registered against a caller-supplied registerer so that
// several sessions (and tests) never collide on the default registry.
type Metrics struct {
	// PollCycles counts poll cycles by outcome (delivered, filtered, gated, skipped, contended)
	PollCycles *prometheus.CounterVec

	// EffectsDelivered counts effects handed to the callback
	EffectsDelivered prometheus.Counter

	// LiveTransitions counts live/not-live notifications by state
	LiveTransitions *prometheus.CounterVec

	// Validations counts policy re-validations
	Validations prometheus.Counter

	// ServiceChecks counts monitor checks by verdict
	ServiceChecks *prometheus.CounterVec

	// Status is 1 for the currently reported status code, 0 otherwise
	Status *prometheus.GaugeVec

	// Live is 1 while effects are being delivered
	Live prometheus.Gauge
}

// New creates and registers the collectors. A nil registerer yields
// unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	m := &Metrics{
		PollCycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broadcast_poll_cycles_total",
				Help: "Poll cycles by outcome",
			},
			[]string{"outcome"},
		),
		EffectsDelivered: f.NewCounter(
			prometheus.CounterOpts{
				Name: "broadcast_effects_delivered_total",
				Help: "Effects delivered to the registered callback",
			},
		),
		LiveTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broadcast_live_transitions_total",
				Help: "Live/not-live notifications by state",
			},
			[]string{"state"},
		),
		Validations: f.NewCounter(
			prometheus.CounterOpts{
				Name: "broadcast_validations_total",
				Help: "Producer and policy re-validations",
			},
		),
		ServiceChecks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broadcast_service_checks_total",
				Help: "Service liveness checks by verdict",
			},
			[]string{"verdict"},
		),
		Status: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "broadcast_status",
				Help: "Currently reported broadcast status (1 = current)",
			},
			[]string{"status"},
		),
		Live: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "broadcast_live",
				Help: "1 while effects are being delivered",
			},
		),
	}

	m.SetStatus(status.Success)
	return m
}

// SetStatus flips the status gauge to c.
func (m *Metrics) SetStatus(c status.Code) {
	for _, code := range status.Codes {
		v := 0.0
		if code == c {
			v = 1
		}
		m.Status.WithLabelValues(code.String()).Set(v)
	}
}

// SetLive records a live/not-live transition.
func (m *Metrics) SetLive(live bool) {
	state := "not_live"
	v := 0.0
	if live {
		state = "live"
		v = 1
	}
	m.LiveTransitions.WithLabelValues(state).Inc()
	m.Live.Set(v)
}
