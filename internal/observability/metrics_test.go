package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/bugfreev587/openshift-utilization/internal/collector"
	"github.com/bugfreev587/openshift-utilization/internal/models"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()
	r.PageFetched(collector.DatasetCapacity, 10)
	r.PageFetched(collector.DatasetUsage, 3)
	r.PageFetched(collector.DatasetUsage, 0)
	r.RecordIngested(collector.Ingested)
	r.RecordIngested(collector.Orphan)
	r.RecordIngested(collector.Ingested)
	r.RunPartial(collector.DatasetUsage)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.pagesTotal.WithLabelValues(collector.DatasetCapacity)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.pagesTotal.WithLabelValues(collector.DatasetUsage)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.recordsTotal.WithLabelValues("ingested")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.recordsTotal.WithLabelValues("orphan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.partialRunsTotal.WithLabelValues(collector.DatasetUsage)))
}

func TestRecorder_ObserveRun(t *testing.T) {
	r := NewRecorder()
	report := models.Report{
		GeneratedAt: time.Unix(1700000000, 0),
		Response: []models.NodeRecord{{
			NodeID:   "n1",
			NodeName: "node-a",
			UtilizationDetail: []models.NamespaceUtilization{
				models.NewNamespaceUtilization("ns1", models.PercentageBundle{CPUUsagePercentage: 50, MemoryRequestPercentage: 25}),
			},
		}},
	}
	r.ObserveRun(report, 2*time.Second, nil)

	assert.Equal(t, 50.0, testutil.ToFloat64(r.namespaceUtilization.WithLabelValues("node-a", "ns1", "cpu_usage")))
	assert.Equal(t, 25.0, testutil.ToFloat64(r.namespaceUtilization.WithLabelValues("node-a", "ns1", "memory_request")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastSuccess))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("complete")))

	r.ObserveRun(models.Report{}, time.Second, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastSuccess))
	assert.Equal(t, 4, testutil.CollectAndCount(r.namespaceUtilization))
}
