package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scriptUpdatesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tinypot_script_updates_received_total",
			Help: "Total number of script update events consumed.",
		},
	)
	scriptUpdatesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinypot_script_updates_failed_total",
			Help: "Total number of script update events that failed processing, partitioned by reason.",
		},
		[]string{"reason"},
	)
	sessionsResynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tinypot_sessions_resynced_total",
			Help: "Total number of live play sessions resynced after script edits.",
		},
	)
)
