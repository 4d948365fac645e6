package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QueueMetrics exposes gauges describing the open job queue.
type QueueMetrics struct {
	overdue prometheus.Gauge
}

// NewQueueMetrics registers the queue gauges on the provided registerer.
func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	if reg == nil {
		return &QueueMetrics{}
	}
	overdue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobs_overdue",
		Help: "Number of non-terminal jobs past their due date.",
	})
	reg.MustRegister(overdue)
	return &QueueMetrics{overdue: overdue}
}

// SetOverdue records the current overdue job count.
func (q *QueueMetrics) SetOverdue(count int) {
	if q == nil || q.overdue == nil {
		return
	}
	q.overdue.Set(float64(count))
}
