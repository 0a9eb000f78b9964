package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversationMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)
	require.NotNil(t, m)

	m.ObserveMessage("booking_request", "awaiting_confirmation")
	m.ObserveParse(true, true)
	m.ObserveParse(true, false)
	m.ObserveBooking("success")
	m.ObserveHandlerLatency("/chat", 0.02)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.messagesTotal.WithLabelValues("booking_request", "awaiting_confirmation")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.parsesTotal.WithLabelValues("date_time")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.parsesTotal.WithLabelValues("date_only")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.bookingsTotal.WithLabelValues("success")))
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *ConversationMetrics
	m.ObserveMessage("general", "start")
	m.ObserveParse(false, false)
	m.ObserveBooking("failure")
	m.ObserveHandlerLatency("/parse", 0.01)
}
