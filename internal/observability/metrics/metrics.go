package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the dialogue engine.
type ConversationMetrics struct {
	messagesTotal  *prometheus.CounterVec
	parsesTotal    *prometheus.CounterVec
	bookingsTotal  *prometheus.CounterVec
	handlerLatency *prometheus.HistogramVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "conversation",
			Name:      "messages_total",
			Help:      "Inbound messages by classified intent and resulting step",
		}, []string{"intent", "step"}),
		parsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "nlp",
			Name:      "parses_total",
			Help:      "Date/time extraction outcomes",
		}, []string{"outcome"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "conversation",
			Name:      "bookings_total",
			Help:      "Booking commit attempts by status",
		}, []string{"status"}),
		handlerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "http",
			Name:      "handler_latency_seconds",
			Help:      "Latency of HTTP handler processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.parsesTotal, m.bookingsTotal, m.handlerLatency)
	return m
}

func (m *ConversationMetrics) ObserveMessage(intent, step string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(intent, step).Inc()
}

// ObserveParse records an extraction outcome: "date_time", "date_only",
// "time_only", or "none".
func (m *ConversationMetrics) ObserveParse(hasDate, hasTime bool) {
	if m == nil {
		return
	}
	outcome := "none"
	switch {
	case hasDate && hasTime:
		outcome = "date_time"
	case hasDate:
		outcome = "date_only"
	case hasTime:
		outcome = "time_only"
	}
	m.parsesTotal.WithLabelValues(outcome).Inc()
}

func (m *ConversationMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *ConversationMetrics) ObserveHandlerLatency(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.handlerLatency.WithLabelValues(endpoint).Observe(seconds)
}
