package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(invoicesPolledTotal, creditsAppliedTotal, notificationsSentTotal) }

var invoicesPolledTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "invoices_polled_total",
		Help: "Gateway status polls, labeled by result.",
	},
	[]string{"result"}, // 'open', 'final', 'error'
)

var creditsAppliedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "invoice_credits_total",
		Help: "Finalized invoices settled, labeled by outcome.",
	},
	[]string{"outcome"}, // 'credited', 'failed_payment', 'already_processed'
)

var notificationsSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Notification deliveries, labeled by status.",
	},
	[]string{"status"}, // 'sent', 'failed'
)

func IncInvoicePolled(result string)   { invoicesPolledTotal.WithLabelValues(norm(result)).Inc() }
func IncCredit(outcome string)         { creditsAppliedTotal.WithLabelValues(norm(outcome)).Inc() }
func IncNotification(status string)    { notificationsSentTotal.WithLabelValues(norm(status)).Inc() }
