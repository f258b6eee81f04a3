// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nsa_rows_processed_total",
			Help: "Total number of repair-order rows processed, by terminal status",
		},
		[]string{"status"},
	)

	AppointmentAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nsa_appointment_attempts_total",
			Help: "Total slot-search/create attempts, by outcome",
		},
		[]string{"outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nsa_notifications_total",
			Help: "Total notification sends, by channel and status",
		},
		[]string{"channel", "status"},
	)

	PlatformRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "nsa_platform_request_duration_seconds",
			Help: "Duration of dealer-platform API calls in seconds",
		},
		[]string{"operation"},
	)
)
