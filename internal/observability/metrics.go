package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Roster operations used as the operation label.
const (
	OpSignup     = "signup"
	OpUnregister = "unregister"
)

var (
	rosterChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mergington",
		Subsystem: "roster",
		Name:      "requests_total",
		Help:      "Signup and unregister attempts grouped by operation and outcome.",
	}, []string{"operation", "outcome"})

	participantsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mergington",
		Subsystem: "roster",
		Name:      "participants",
		Help:      "Current participant count per activity.",
	}, []string{"activity"})
)

func init() {
	prometheus.MustRegister(rosterChanges, participantsGauge)
}

// RecordRosterChange counts a signup or unregister attempt.
func RecordRosterChange(operation, outcome string) {
	rosterChanges.WithLabelValues(operation, outcome).Inc()
}

// RecordParticipants sets the participant gauge for an activity.
func RecordParticipants(activity string, count int) {
	participantsGauge.WithLabelValues(activity).Set(float64(count))
}
