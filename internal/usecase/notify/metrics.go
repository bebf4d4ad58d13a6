package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for report delivery
var (
	// mailDeliveriesTotal tracks delivery results per transport
	mailDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_mail_deliveries_total",
			Help: "Total number of report emails by delivery result",
		},
		[]string{"transport", "result"}, // result: sent|failed
	)

	// mailSendDuration tracks how long the SMTP session took
	mailSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_mail_send_duration_seconds",
			Help:    "Report email send duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"transport"},
	)
)

// recordDelivery records the outcome and duration of one send.
func recordDelivery(transport string, sent bool, duration time.Duration) {
	result := "sent"
	if !sent {
		result = "failed"
	}
	mailDeliveriesTotal.WithLabelValues(transport, result).Inc()
	mailSendDuration.WithLabelValues(transport).Observe(duration.Seconds())
}
