package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(gatewayLatency) }

var gatewayLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "settlement_gateway_request_duration_seconds",
		Help:    "Latency of payment gateway API calls.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	},
	[]string{"operation", "success"},
)

func ObserveGatewayCall(operation string, started time.Time, err error) {
	gatewayLatency.WithLabelValues(norm(operation), strconv.FormatBool(err == nil)).
		Observe(time.Since(started).Seconds())
}
