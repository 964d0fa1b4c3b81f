package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(notificationsTotal, notificationQueueDepth) }

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_notifications_total",
			Help: "Notification deliveries by sink and result.",
		},
		[]string{"sink", "result"}, // result: delivered, failed, dropped
	)

	notificationQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "settlement_notification_queue_depth",
			Help: "Events waiting in the notification queue.",
		},
	)
)

func IncNotification(sink, result string) {
	notificationsTotal.WithLabelValues(norm(sink), norm(result)).Inc()
}

func SetNotificationQueueDepth(n int) {
	notificationQueueDepth.Set(float64(n))
}
