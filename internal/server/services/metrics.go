package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// scanOutcomes counts final reconciler statuses.
	scanOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileintake_scan_outcomes_total",
			Help: "Final scan status per reconciled file",
		},
		[]string{"status"},
	)

	// scanPollAttempts observes how many tag polls a reconcile took.
	scanPollAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fileintake_scan_poll_attempts",
			Help:    "Number of tag polls performed per reconciled file",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	quarantineTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileintake_quarantine_total",
			Help: "Quarantine relocations by result",
		},
		[]string{"result"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileintake_notifications_total",
			Help: "Threat notifications by result",
		},
		[]string{"result"},
	)
)

// scanOutcomeLabel keeps label cardinality bounded when the scanner
// reports values this service does not know.
func scanOutcomeLabel(s string) string {
	switch s {
	case "CLEAN", "THREATS_FOUND", "FAILED", "MOVED_TO_MALWARE_BUCKET", "MOVE_FAILED":
		return s
	default:
		return "OTHER"
	}
}
