package models

import "math"

// UtilizationUnitPercent is the only unit utilization figures are reported in.
const UtilizationUnitPercent = "percent"

// PercentageBundle holds the four percentages computed for a usage record.
type PercentageBundle struct {
	CPUUsagePercentage      float64 `json:"cpu_usage_percentage" yaml:"cpu_usage_percentage"`
	MemoryUsagePercentage   float64 `json:"memory_usage_percentage" yaml:"memory_usage_percentage"`
	CPURequestPercentage    float64 `json:"cpu_request_percentage" yaml:"cpu_request_percentage"`
	MemoryRequestPercentage float64 `json:"memory_request_percentage" yaml:"memory_request_percentage"`
}

// Max returns the largest of the four percentages.
func (b PercentageBundle) Max() float64 {
	return math.Max(math.Max(b.CPUUsagePercentage, b.MemoryUsagePercentage),
		math.Max(b.CPURequestPercentage, b.MemoryRequestPercentage))
}

// Add sums b and o field by field, rounding each sum to 4 decimals.
func (b PercentageBundle) Add(o PercentageBundle) PercentageBundle {
	return PercentageBundle{
		CPUUsagePercentage:      Round4(b.CPUUsagePercentage + o.CPUUsagePercentage),
		MemoryUsagePercentage:   Round4(b.MemoryUsagePercentage + o.MemoryUsagePercentage),
		CPURequestPercentage:    Round4(b.CPURequestPercentage + o.CPURequestPercentage),
		MemoryRequestPercentage: Round4(b.MemoryRequestPercentage + o.MemoryRequestPercentage),
	}
}

// NamespaceUtilization is the utilization of one namespace on one node.
type NamespaceUtilization struct {
	Namespace       string           `json:"namespace" yaml:"namespace"`
	Utilization     float64          `json:"utilization" yaml:"utilization"` // max of Details
	UtilizationUnit string           `json:"utilization_unit" yaml:"utilization_unit"`
	Details         PercentageBundle `json:"details" yaml:"details"`
}

func NewNamespaceUtilization(namespace string, details PercentageBundle) NamespaceUtilization {
	return NamespaceUtilization{
		Namespace:       namespace,
		Utilization:     details.Max(),
		UtilizationUnit: UtilizationUnitPercent,
		Details:         details,
	}
}

// NodeRecord groups namespace utilization entries by node, in first-seen order.
type NodeRecord struct {
	NodeID            string                 `json:"node_id" yaml:"node_id"`
	NodeName          string                 `json:"node_name" yaml:"node_name"`
	UtilizationDetail []NamespaceUtilization `json:"utilization_detail" yaml:"utilization_detail"`
}

// Round4 rounds x to 4 decimal places.
func Round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
