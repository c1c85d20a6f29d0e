package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(meteredGBTotal, serversSkippedTotal, counterResetFailuresTotal) }

var meteredGBTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "usage_metered_gb_total",
		Help: "Total traffic attributed to subscriptions, in GB.",
	},
)

var serversSkippedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "metering_servers_skipped_total",
		Help: "Servers skipped during a metering tick, labeled by reason.",
	},
	[]string{"reason"}, // 'auth', 'unreachable', 'bad_payload'
)

var counterResetFailuresTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "metering_counter_reset_failures_total",
		Help: "Failed panel counter resets; traffic is over-counted next tick.",
	},
)

func AddMeteredGB(gb float64)        { meteredGBTotal.Add(gb) }
func IncServerSkipped(reason string) { serversSkippedTotal.WithLabelValues(norm(reason)).Inc() }
func IncCounterResetFailure()        { counterResetFailuresTotal.Inc() }
