package reservation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeReserved     = "reserved"
	outcomeExhausted    = "exhausted"
	outcomeUntracked    = "untracked"
	outcomeRaceExceeded = "race_exceeded"
)

var (
	submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidfinder_request_submissions_total",
			Help: "Submitted requests by capacity outcome",
		},
		[]string{"outcome"},
	)
	decrementConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aidfinder_capacity_decrement_conflicts_total",
			Help: "Compare-and-decrement attempts lost to a concurrent writer",
		},
	)
	statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidfinder_request_transitions_total",
			Help: "Request status transitions by target status",
		},
		[]string{"status"},
	)
)
