package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(subscriptionsDeactivatedTotal, quotaWarningsTotal) }

var subscriptionsDeactivatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "subscriptions_deactivated_total",
		Help: "Subscriptions deactivated by the scanner, labeled by cause.",
	},
	[]string{"cause"}, // 'expired', 'over_quota'
)

var quotaWarningsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "quota_warnings_total",
		Help: "Low-balance notifications raised by the metering worker.",
	},
)

func IncSubscriptionDeactivated(cause string) {
	subscriptionsDeactivatedTotal.WithLabelValues(norm(cause)).Inc()
}

func IncQuotaWarning() { quotaWarningsTotal.Inc() }
