// Package metrics provides Prometheus metrics for the assistant
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all collectors. A nil *Metrics records nothing.
type Metrics struct {
	InboundMessages  *prometheus.CounterVec
	OutboundMessages *prometheus.CounterVec
	Deliveries       *prometheus.CounterVec
	InterpreterCalls *prometheus.CounterVec
	StateTransitions *prometheus.CounterVec
	HandleDuration   prometheus.Histogram
	ActiveSessions   prometheus.Gauge
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		InboundMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripguide_inbound_messages_total",
				Help: "Inbound messages by kind",
			},
			[]string{"kind"},
		),
		OutboundMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripguide_outbound_messages_total",
				Help: "Outbound sends by kind and result",
			},
			[]string{"kind", "result"},
		),
		Deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripguide_place_deliveries_total",
				Help: "Place deliveries by final status",
			},
			[]string{"status"},
		),
		InterpreterCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripguide_interpreter_calls_total",
				Help: "Intent interpreter calls by result",
			},
			[]string{"result"},
		),
		StateTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripguide_state_transitions_total",
				Help: "Conversation state transitions",
			},
			[]string{"from", "to"},
		),
		HandleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tripguide_handle_duration_seconds",
				Help:    "Time spent handling one inbound message",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tripguide_active_sessions",
				Help: "Conversation sessions not yet expired",
			},
		),
	}
}

func (m *Metrics) Inbound(kind string) {
	if m == nil {
		return
	}
	m.InboundMessages.WithLabelValues(kind).Inc()
}

func (m *Metrics) Outbound(kind string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.OutboundMessages.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Delivery(status string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(status).Inc()
}

func (m *Metrics) Interpreter(result string) {
	if m == nil {
		return
	}
	m.InterpreterCalls.WithLabelValues(result).Inc()
}

func (m *Metrics) Transition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.StateTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveHandle(start time.Time) {
	if m == nil {
		return
	}
	m.HandleDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) Sessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
