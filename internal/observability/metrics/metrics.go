package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FlowMetrics exposes counters/histograms for booking flows and the chat
// stream. It satisfies flow.Observer and chat.FailureObserver.
type FlowMetrics struct {
	activeFlows       *prometheus.GaugeVec
	flowsEnded        *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	confirms          *prometheus.CounterVec
	assignments       *prometheus.CounterVec
	assignmentLatency *prometheus.HistogramVec
	chatFailures      *prometheus.CounterVec
}

func NewFlowMetrics(reg prometheus.Registerer) *FlowMetrics {
	m := &FlowMetrics{
		activeFlows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "carehub",
			Subsystem: "flow",
			Name:      "active",
			Help:      "Booking flows currently open",
		}, []string{"vertical"}),
		flowsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carehub",
			Subsystem: "flow",
			Name:      "ended_total",
			Help:      "Booking flows closed, by outcome",
		}, []string{"vertical", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carehub",
			Subsystem: "flow",
			Name:      "transitions_total",
			Help:      "Step transitions attempted",
		}, []string{"vertical", "result"}),
		confirms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carehub",
			Subsystem: "flow",
			Name:      "confirm_total",
			Help:      "Confirm attempts",
		}, []string{"vertical", "result"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carehub",
			Subsystem: "assignment",
			Name:      "total",
			Help:      "Provider assignments finished",
		}, []string{"vertical", "result"}),
		assignmentLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carehub",
			Subsystem: "assignment",
			Name:      "latency_seconds",
			Help:      "Time from assignment start to result",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 30},
		}, []string{"vertical"}),
		chatFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carehub",
			Subsystem: "chat",
			Name:      "stream_failures_total",
			Help:      "Assistant streams that did not complete",
		}, []string{"reason"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.activeFlows, m.flowsEnded, m.transitions, m.confirms, m.assignments, m.assignmentLatency, m.chatFailures)
	return m
}

func (m *FlowMetrics) FlowStarted(vertical string) {
	if m == nil {
		return
	}
	m.activeFlows.WithLabelValues(vertical).Inc()
}

func (m *FlowMetrics) FlowEnded(vertical, outcome string) {
	if m == nil {
		return
	}
	m.activeFlows.WithLabelValues(vertical).Dec()
	m.flowsEnded.WithLabelValues(vertical, outcome).Inc()
}

func (m *FlowMetrics) Transition(vertical, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(vertical, result).Inc()
}

func (m *FlowMetrics) Confirm(vertical, result string) {
	if m == nil {
		return
	}
	m.confirms.WithLabelValues(vertical, result).Inc()
}

func (m *FlowMetrics) Assignment(vertical, result string, latency time.Duration) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(vertical, result).Inc()
	m.assignmentLatency.WithLabelValues(vertical).Observe(latency.Seconds())
}

func (m *FlowMetrics) ChatStreamFailed(reason string) {
	if m == nil {
		return
	}
	m.chatFailures.WithLabelValues(reason).Inc()
}
