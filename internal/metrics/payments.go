package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersTotal,
		capturesTotal,
		settlementsTotal,
		refundsTotal,
		webhookEventsTotal,
		signatureFailuresTotal,
	)
}

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_orders_total",
			Help: "Gateway orders created, by result.",
		},
		[]string{"result"},
	)

	capturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_captures_total",
			Help: "Capture attempts by trigger source and result.",
		},
		[]string{"source", "result"}, // result: captured, already_captured, rejected
	)

	settlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_runs_total",
			Help: "Settlement engine runs by business type and outcome.",
		},
		[]string{"business_type", "outcome"}, // outcome: applied, skipped, already_settled, failed
	)

	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_refunds_total",
			Help: "Refund operations by source and result.",
		},
		[]string{"source", "result"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_webhook_events_total",
			Help: "Authenticated webhook events by type and processing result.",
		},
		[]string{"event", "result"},
	)

	signatureFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_signature_failures_total",
			Help: "Rejected signatures by verification kind.",
		},
		[]string{"kind"}, // kind: order_payment, webhook
	)
)

func IncOrder(result string) {
	ordersTotal.WithLabelValues(norm(result)).Inc()
}

func IncCapture(source, result string) {
	capturesTotal.WithLabelValues(norm(source), norm(result)).Inc()
}

func IncSettlement(businessType, outcome string) {
	settlementsTotal.WithLabelValues(norm(businessType), norm(outcome)).Inc()
}

func IncRefund(source, result string) {
	refundsTotal.WithLabelValues(norm(source), norm(result)).Inc()
}

func IncWebhookEvent(event, result string) {
	webhookEventsTotal.WithLabelValues(norm(event), norm(result)).Inc()
}

func IncSignatureFailure(kind string) {
	signatureFailuresTotal.WithLabelValues(norm(kind)).Inc()
}
