package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsPartitionsRunsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveDuration("outbox-retention", 300*time.Millisecond)
	m.IncSuccess("outbox-retention")
	m.IncSuccess("outbox-retention")
	m.IncFailure("outbox-retention")

	families, err := reg.Gather()
	require.NoError(t, err)

	require.Equal(t, float64(2), counterValue(t, families, "cron_job_runs_total", map[string]string{
		"job":    "outbox-retention",
		"result": "success",
	}))
	require.Equal(t, float64(1), counterValue(t, families, "cron_job_runs_total", map[string]string{
		"job":    "outbox-retention",
		"result": "failure",
	}))

	sum := histogramSum(t, families, "cron_job_duration_seconds", map[string]string{"job": "outbox-retention"})
	require.InDelta(t, 0.3, sum, 0.001)
}

func TestCronJobMetricsEmptyJobNameFallsBack(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSuccess("")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, float64(1), counterValue(t, families, "cron_job_runs_total", map[string]string{
		"job":    "unknown",
		"result": "success",
	}))
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveDuration("outbox-retention", time.Second)
	m.IncSuccess("outbox-retention")
	m.IncFailure("outbox-retention")

	unregistered := NewCronJobMetrics(nil)
	unregistered.IncSuccess("outbox-retention")
}

func counterValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	metric := findMetric(families, name, labels)
	require.NotNilf(t, metric, "counter %s %v not found", name, labels)
	return metric.GetCounter().GetValue()
}

func histogramSum(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	metric := findMetric(families, name, labels)
	require.NotNilf(t, metric, "histogram %s %v not found", name, labels)
	return metric.GetHistogram().GetSampleSum()
}

func findMetric(families []*dto.MetricFamily, name string, labels map[string]string) *dto.Metric {
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if hasLabels(metric.GetLabel(), labels) {
				return metric
			}
		}
	}
	return nil
}

func hasLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	got := map[string]string{}
	for _, pair := range pairs {
		got[pair.GetName()] = pair.GetValue()
	}
	for name, value := range want {
		if got[name] != value {
			return false
		}
	}
	return true
}
