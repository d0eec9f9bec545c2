package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	emitted         *prometheus.CounterVec
	paymentFailures *prometheus.CounterVec
	feedHead        prometheus.Gauge
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking the sequenced protocol event
// feed.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stay",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of protocol events appended to the feed by type.",
			}, []string{"type"}),
			paymentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stay",
				Subsystem: "events",
				Name:      "payment_failures_total",
				Help:      "Count of failed payment legs by leg name.",
			}, []string{"leg"}),
			feedHead: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "stay",
				Subsystem: "events",
				Name:      "feed_head",
				Help:      "Sequence number of the most recent feed event.",
			}),
		}
		prometheus.MustRegister(
			eventRegistry.emitted,
			eventRegistry.paymentFailures,
			eventRegistry.feedHead,
		)
	})
	return eventRegistry
}

// RecordEvent counts an appended feed event and advances the head gauge.
func (m *eventMetrics) RecordEvent(eventType string, sequence uint64) {
	if m == nil {
		return
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		eventType = "unknown"
	}
	m.emitted.WithLabelValues(eventType).Inc()
	m.feedHead.Set(float64(sequence))
}

// RecordPaymentFailure counts a failed payment leg.
func (m *eventMetrics) RecordPaymentFailure(leg string) {
	if m == nil {
		return
	}
	leg = strings.TrimSpace(leg)
	if leg == "" {
		leg = "unknown"
	}
	m.paymentFailures.WithLabelValues(leg).Inc()
}
