package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	handledCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mergington",
		Subsystem: "audit",
		Name:      "events_handled_total",
		Help:      "Roster events applied by the audit consumer.",
	}, []string{"event_type"})

	rejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mergington",
		Subsystem: "audit",
		Name:      "records_rejected_total",
		Help:      "Records committed without handling because they could not be decoded.",
	}, []string{"reason"})

	duplicateCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mergington",
		Subsystem: "audit",
		Name:      "events_duplicate_total",
		Help:      "Redelivered roster events dropped by event ID.",
	})

	handlerFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mergington",
		Subsystem: "audit",
		Name:      "handler_failures_total",
		Help:      "Failed handler attempts, split into retried and abandoned.",
	}, []string{"event_type", "outcome"})

	eventLag = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mergington",
		Subsystem: "audit",
		Name:      "event_lag_seconds",
		Help:      "Time between a roster change and its audit.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
	})
)

func init() {
	prometheus.MustRegister(handledCounter, rejectedCounter, duplicateCounter, handlerFailureCounter, eventLag)
}

func recordHandled(evt Event) {
	handledCounter.WithLabelValues(evt.EventType).Inc()
	if !evt.OccurredAt.IsZero() {
		eventLag.Observe(time.Since(evt.OccurredAt).Seconds())
	}
}

func recordRejected(reason string) {
	rejectedCounter.WithLabelValues(reason).Inc()
}

func recordDuplicate() {
	duplicateCounter.Inc()
}

func recordHandlerFailure(eventType, outcome string) {
	handlerFailureCounter.WithLabelValues(eventType, outcome).Inc()
}
