// Package metrics exposes Prometheus counters for the planning engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingsTotal counts successful book transitions.
	BookingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camplan_bookings_total",
		Help: "Number of candidacies transitioned to booked.",
	})

	// UnbookingsTotal counts successful unbook transitions.
	UnbookingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camplan_unbookings_total",
		Help: "Number of bookings cancelled.",
	})

	// SyncAttemptsTotal counts calendar push attempts, by outcome.
	SyncAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camplan_sync_attempts_total",
		Help: "Calendar sync attempts by outcome (ok, transient, permanent).",
	}, []string{"outcome"})

	// SyncDegradedTotal counts jobs that ran out of retries or hit a
	// permanent failure.
	SyncDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camplan_sync_degraded_total",
		Help: "Sync jobs marked degraded.",
	})

	// ConflictsDetectedTotal counts preference conflicts surfaced.
	ConflictsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camplan_conflicts_detected_total",
		Help: "Preference conflicts detected after rank or session changes.",
	})
)
