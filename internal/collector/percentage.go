package collector

import (
	"math"

	"github.com/bugfreev587/openshift-utilization/internal/models"
)

// Percentage returns usage as a percentage of capacity, rounded to 4 decimals.
// usage is converted from usageUnit first. A zero capacity yields 0.
func Percentage(capacity, usage float64, usageUnit string) float64 {
	if capacity == 0 {
		return 0.0
	}
	usage = ConvertUnit(usage, usageUnit)
	pct := models.Round4(usage / capacity * 100)
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0.0
	}
	return pct
}

// Bundle computes the four percentages of a usage record against the capacity
// of the node it ran on.
func Bundle(capacity models.CapacityRecord, usage models.UsageRecord) models.PercentageBundle {
	cpu := capacity.NodeCapacityCPU.Float64()
	mem := capacity.NodeCapacityMemory.Float64()
	return models.PercentageBundle{
		CPUUsagePercentage:      Percentage(cpu, usage.PodUsageCPU.Float64(), usage.PodUsageCPUUnit),
		MemoryUsagePercentage:   Percentage(mem, usage.PodUsageMemory.Float64(), usage.PodUsageMemoryUnit),
		CPURequestPercentage:    Percentage(cpu, usage.PodRequestCPU.Float64(), usage.PodRequestCPUUnit),
		MemoryRequestPercentage: Percentage(mem, usage.PodRequestMemory.Float64(), usage.PodRequestMemoryUnit),
	}
}
