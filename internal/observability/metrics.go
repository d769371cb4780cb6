package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/bugfreev587/openshift-utilization/internal/collector"
	"github.com/bugfreev587/openshift-utilization/internal/models"
)

// Recorder exposes Prometheus metrics for aggregation runs.
type Recorder struct {
	registry *prometheus.Registry

	pagesTotal           *prometheus.CounterVec
	recordsTotal         *prometheus.CounterVec
	partialRunsTotal     *prometheus.CounterVec
	runsTotal            *prometheus.CounterVec
	runDuration          prometheus.Histogram
	namespaceUtilization *prometheus.GaugeVec
	lastSuccess          prometheus.Gauge
}

var _ collector.Recorder = (*Recorder)(nil)

// NewRecorder registers the collectors on a fresh registry, along with the Go
// and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		pagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "utilization_pages_fetched_total",
			Help: "Report API pages fetched, by dataset",
		}, []string{"dataset"}),
		recordsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "utilization_usage_records_total",
			Help: "Usage records processed, by result",
		}, []string{"result"}),
		partialRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "utilization_partial_pagination_total",
			Help: "Paginations that stopped early on a failed page fetch",
		}, []string{"dataset"}),
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "utilization_runs_total",
			Help: "Aggregation runs, by outcome",
		}, []string{"outcome"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "utilization_run_duration_seconds",
			Help:    "Wall time of an aggregation run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		namespaceUtilization: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "utilization_namespace_percent",
			Help: "Latest per node and namespace utilization, by metric",
		}, []string{"node", "namespace", "metric"}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "utilization_last_success_timestamp_seconds",
			Help: "Unix time of the last run that produced a report",
		}),
	}
}

// Registry is what /metrics and the pushgateway read from.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) PageFetched(dataset string, records int) {
	r.pagesTotal.WithLabelValues(dataset).Inc()
}

func (r *Recorder) RecordIngested(result collector.IngestResult) {
	r.recordsTotal.WithLabelValues(result.String()).Inc()
}

func (r *Recorder) RunPartial(dataset string) {
	r.partialRunsTotal.WithLabelValues(dataset).Inc()
}

// ObserveRun records the outcome of a run. On success the namespace gauges are
// replaced with the report's figures.
func (r *Recorder) ObserveRun(report models.Report, elapsed time.Duration, err error) {
	r.runDuration.Observe(elapsed.Seconds())
	switch {
	case err != nil:
		r.runsTotal.WithLabelValues("failed").Inc()
		return
	case report.Partial:
		r.runsTotal.WithLabelValues("partial").Inc()
	default:
		r.runsTotal.WithLabelValues("complete").Inc()
	}
	r.lastSuccess.Set(float64(report.GeneratedAt.Unix()))

	r.namespaceUtilization.Reset()
	for _, node := range report.Response {
		for _, ns := range node.UtilizationDetail {
			d := ns.Details
			r.namespaceUtilization.WithLabelValues(node.NodeName, ns.Namespace, "cpu_usage").Set(d.CPUUsagePercentage)
			r.namespaceUtilization.WithLabelValues(node.NodeName, ns.Namespace, "memory_usage").Set(d.MemoryUsagePercentage)
			r.namespaceUtilization.WithLabelValues(node.NodeName, ns.Namespace, "cpu_request").Set(d.CPURequestPercentage)
			r.namespaceUtilization.WithLabelValues(node.NodeName, ns.Namespace, "memory_request").Set(d.MemoryRequestPercentage)
		}
	}
}

// Push sends the current metrics to a Prometheus Pushgateway.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(r.registry).PushContext(ctx)
}
