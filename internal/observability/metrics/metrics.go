package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for the booking bot.
// A nil *BookingMetrics is a valid no-op recorder.
type BookingMetrics struct {
	reg prometheus.Registerer

	messagesTotal      *prometheus.CounterVec
	webhookLatency     *prometheus.HistogramVec
	followupRunsTotal  *prometheus.CounterVec
	followupsScheduled prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &BookingMetrics{
		reg: reg,
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_bot",
			Subsystem: "conversation",
			Name:      "messages_total",
			Help:      "Inbound chat messages by engine action and outcome",
		}, []string{"action", "outcome"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic_bot",
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound message webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		followupRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_bot",
			Subsystem: "followup",
			Name:      "runs_total",
			Help:      "Follow-up scheduler passes by outcome",
		}, []string{"outcome"}),
		followupsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic_bot",
			Subsystem: "followup",
			Name:      "scheduled_total",
			Help:      "Follow-up records created",
		}),
	}
	reg.MustRegister(m.messagesTotal, m.webhookLatency, m.followupRunsTotal, m.followupsScheduled)
	return m
}

// ObserveMessage implements conversation.Recorder.
func (m *BookingMetrics) ObserveMessage(action, outcome string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveWebhookLatency implements messaging.LatencyObserver.
func (m *BookingMetrics) ObserveWebhookLatency(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(provider).Observe(seconds)
}

// ObserveFollowupRun implements followup.Recorder.
func (m *BookingMetrics) ObserveFollowupRun(outcome string, scheduled int) {
	if m == nil {
		return
	}
	m.followupRunsTotal.WithLabelValues(outcome).Inc()
	if scheduled > 0 {
		m.followupsScheduled.Add(float64(scheduled))
	}
}

// SlotCounter is satisfied by *slots.Pool.
type SlotCounter interface {
	Remaining() int
}

// TrackSlots exports the pool's free slot count as a gauge read at scrape time.
func (m *BookingMetrics) TrackSlots(pool SlotCounter) {
	if m == nil || pool == nil {
		return
	}
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "clinic_bot",
		Subsystem: "slots",
		Name:      "available",
		Help:      "Slots still open for booking",
	}, func() float64 { return float64(pool.Remaining()) }))
}
