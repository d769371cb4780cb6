package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

// Number is a numeric metric value. The reporting API is not consistent about
// quoting numbers, so decoding accepts JSON numbers, numeric strings and null.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if s, ok := raw.(string); ok && s == "" {
		*n = 0
		return nil
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return fmt.Errorf("invalid numeric value %s: %w", string(data), err)
	}
	*n = Number(f)
	return nil
}

func (n Number) Float64() float64 { return float64(n) }

// CapacityKey identifies a capacity record.
type CapacityKey struct {
	NodeID    string
	Namespace string
	PodName   string
}

func (k CapacityKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.NodeID, k.Namespace, k.PodName)
}

// CapacityRecord is one row of the capacity query. Capacity is reported per pod
// but the figures are those of the node the pod ran on.
type CapacityRecord struct {
	NodeID                 string `json:"node_id" yaml:"node_id"`
	NodeName               string `json:"node_name,omitempty" yaml:"node_name,omitempty"`
	Namespace              string `json:"namespace" yaml:"namespace"`
	PodName                string `json:"pod_name" yaml:"pod_name"`
	NodeCapacityCPU        Number `json:"node_capacity_cpu" yaml:"node_capacity_cpu"`
	NodeCapacityCPUUnit    string `json:"node_capacity_cpu_unit" yaml:"node_capacity_cpu_unit"`
	NodeCapacityMemory     Number `json:"node_capacity_memory" yaml:"node_capacity_memory"`
	NodeCapacityMemoryUnit string `json:"node_capacity_memory_unit" yaml:"node_capacity_memory_unit"`
}

func (r CapacityRecord) Key() CapacityKey {
	return CapacityKey{NodeID: r.NodeID, Namespace: r.Namespace, PodName: r.PodName}
}

// UsageRecord is one row of the usage query.
type UsageRecord struct {
	NodeID               string `json:"node_id" yaml:"node_id"`
	NodeName             string `json:"node_name" yaml:"node_name"`
	Namespace            string `json:"namespace" yaml:"namespace"`
	PodName              string `json:"pod_name" yaml:"pod_name"`
	PodUsageCPU          Number `json:"pod_usage_cpu" yaml:"pod_usage_cpu"`
	PodUsageCPUUnit      string `json:"pod_usage_cpu_unit" yaml:"pod_usage_cpu_unit"`
	PodRequestCPU        Number `json:"pod_request_cpu" yaml:"pod_request_cpu"`
	PodRequestCPUUnit    string `json:"pod_request_cpu_unit" yaml:"pod_request_cpu_unit"`
	PodUsageMemory       Number `json:"pod_usage_memory" yaml:"pod_usage_memory"`
	PodUsageMemoryUnit   string `json:"pod_usage_memory_unit" yaml:"pod_usage_memory_unit"`
	PodRequestMemory     Number `json:"pod_request_memory" yaml:"pod_request_memory"`
	PodRequestMemoryUnit string `json:"pod_request_memory_unit" yaml:"pod_request_memory_unit"`
}

func (r UsageRecord) Key() CapacityKey {
	return CapacityKey{NodeID: r.NodeID, Namespace: r.Namespace, PodName: r.PodName}
}
