// Package metrics exposes prometheus counters for the leave engine.
// Informational only; nothing in the engine reads them back.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_requests_created_total",
			Help: "Leave requests submitted, by leave type",
		},
		[]string{"type"},
	)

	RequestsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_requests_finalized_total",
			Help: "Leave requests reaching a terminal decision, by outcome",
		},
		[]string{"outcome"},
	)

	CreditConversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_credit_conversions_total",
			Help: "Credit split outcomes at approval time",
		},
		[]string{"kind"}, // full, partial, converted, withheld
	)

	ConflictsDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leave_conflicts_detected_total",
			Help: "Schedule conflict checks that found at least one overlap",
		},
	)
)

func init() {
	prometheus.MustRegister(RequestsCreated, RequestsFinalized, CreditConversions, ConflictsDetected)
}
