package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugfreev587/openshift-utilization/internal/config"
	"github.com/bugfreev587/openshift-utilization/internal/models"
	"github.com/bugfreev587/openshift-utilization/internal/sender"
)

// fakeReportAPI answers capacity and usage queries with two pages each.
func fakeReportAPI(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var q models.Query
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&q)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		capacity := len(q.Metrics) > 0 && q.Metrics[0] == "node_capacity_cpu"
		second := q.NextToken != nil

		switch {
		case capacity && !second:
			w.Write([]byte(`{"response": [{"node_id": "n1", "namespace": "ns1", "pod_name": "p1",
				"node_capacity_cpu": 4, "node_capacity_cpu_unit": "cores",
				"node_capacity_memory": 8, "node_capacity_memory_unit": "GB"}],
				"next_token": "cap-2", "exec_id": "exec-cap"}`))
		case capacity:
			assert.Equal(t, "exec-cap", q.ExecID)
			w.Write([]byte(`{"response": [{"node_id": "n1", "namespace": "ns1", "pod_name": "p2",
				"node_capacity_cpu": "4", "node_capacity_cpu_unit": "cores",
				"node_capacity_memory": "8", "node_capacity_memory_unit": "GB"}],
				"next_token": null, "exec_id": "exec-cap"}`))
		case !second:
			w.Write([]byte(`{"response": [{"node_id": "n1", "node_name": "node-a", "namespace": "ns1", "pod_name": "p1",
				"pod_usage_cpu": 2000, "pod_usage_cpu_unit": "milicores",
				"pod_request_cpu": 1000, "pod_request_cpu_unit": "milicores",
				"pod_usage_memory": 4096, "pod_usage_memory_unit": "MiB",
				"pod_request_memory": 2048, "pod_request_memory_unit": "MiB"}],
				"next_token": "use-2", "exec_id": "exec-use"}`))
		default:
			w.Write([]byte(`{"response": [{"node_id": "n1", "node_name": "node-a", "namespace": "ns1", "pod_name": "p2",
				"pod_usage_cpu": 1200, "pod_usage_cpu_unit": "milicores",
				"pod_request_cpu": 0, "pod_request_cpu_unit": "milicores",
				"pod_usage_memory": 0, "pod_usage_memory_unit": "MiB",
				"pod_request_memory": 0, "pod_request_memory_unit": "MiB"},
				{"node_id": "n9", "node_name": "node-z", "namespace": "ns1", "pod_name": "ghost",
				"pod_usage_cpu": 1, "pod_usage_cpu_unit": "milicores"}],
				"next_token": null, "exec_id": "exec-use"}`))
		}
	}))
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		BaseURL:      baseURL,
		AuthToken:    "t",
		StartDate:    "2024-04-1",
		EndDate:      "2024-05-15",
		PageSize:     1,
		HTTPTimeout:  time.Second,
		OrphanPolicy: "skip",
		Output:       config.OutputCfg{Path: "-", Format: "json"},
	}
}

func TestRunner_RunOnce(t *testing.T) {
	srv := fakeReportAPI(t)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	var out bytes.Buffer
	var seen []models.Report
	runner, err := NewRunner(cfg, NewClient(cfg, nil), &sender.FileSender{Path: "-", Format: "json", Out: &out}, nil, nil)
	require.NoError(t, err)
	runner.OnReport = func(r models.Report) { seen = append(seen, r) }

	report, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, seen, 1)
	assert.False(t, report.Partial)
	assert.Equal(t, 1, report.Orphans)

	var decoded struct {
		RequestPayload models.Query        `json:"request_payload"`
		Response       []models.NodeRecord `json:"response"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, cfg.UsageQuery(), decoded.RequestPayload)
	require.Len(t, decoded.Response, 1)
	node := decoded.Response[0]
	assert.Equal(t, "node-a", node.NodeName)
	require.Len(t, node.UtilizationDetail, 1)
	assert.Equal(t, models.PercentageBundle{
		CPUUsagePercentage:      80.0,
		MemoryUsagePercentage:   50.0,
		CPURequestPercentage:    25.0,
		MemoryRequestPercentage: 25.0,
	}, node.UtilizationDetail[0].Details)
	assert.Equal(t, 80.0, node.UtilizationDetail[0].Utilization)
}

func TestRunner_StartStopsOnCancel(t *testing.T) {
	srv := fakeReportAPI(t)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	runner, err := NewRunner(cfg, NewClient(cfg, nil), &sender.FileSender{Path: "-", Format: "json", Out: &bytes.Buffer{}}, nil, nil)
	require.NoError(t, err)
	reported := make(chan struct{}, 1)
	runner.OnReport = func(models.Report) {
		select {
		case reported <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := runner.Start(ctx, time.Hour)

	select {
	case <-reported:
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not complete")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func TestRunner_AbortPolicy(t *testing.T) {
	srv := fakeReportAPI(t)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.OrphanPolicy = "abort"
	var out bytes.Buffer
	runner, err := NewRunner(cfg, NewClient(cfg, nil), &sender.FileSender{Path: "-", Format: "json", Out: &out}, nil, nil)
	require.NoError(t, err)

	_, err = runner.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "n9/ns1/ghost")
	assert.Zero(t, out.Len())
}

func TestRunner_StatusErrorGivesPartialReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	var out bytes.Buffer
	runner, err := NewRunner(cfg, NewClient(cfg, nil), &sender.FileSender{Path: "-", Format: "json", Out: &out}, nil, nil)
	require.NoError(t, err)

	report, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Partial)
	assert.Empty(t, report.Response)
	assert.JSONEq(t, `{"request_payload": `+mustJSON(t, cfg.UsageQuery())+`, "response": []}`, out.String())
}

func TestNewRunner_RejectsUnknownPolicy(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.OrphanPolicy = "shrug"
	_, err := NewRunner(cfg, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestBuildSenders(t *testing.T) {
	cfg := testConfig("http://unused")
	assert.Len(t, BuildSenders(cfg, nil), 1)

	cfg.Sink.WebhookURL = "http://sink.example.test"
	assert.Len(t, BuildSenders(cfg, &Backends{}), 2)
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
