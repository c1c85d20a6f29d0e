package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(queueJobsProcessedTotal, queueDepth) }

var queueJobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_jobs_processed_total",
		Help: "Total queue jobs processed, labeled by queue and outcome.",
	},
	[]string{"queue", "outcome"}, // 'done', 'retry'
)

var queueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "queue_depth",
		Help: "Jobs seen pending at the start of the last drain, per queue.",
	},
	[]string{"queue"},
)

func IncJob(queue, outcome string) {
	queueJobsProcessedTotal.WithLabelValues(norm(queue), norm(outcome)).Inc()
}

func SetQueueDepth(queue string, n int) {
	queueDepth.WithLabelValues(norm(queue)).Set(float64(n))
}
