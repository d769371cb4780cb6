package collector

import (
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Usage units the reporting API may tag a value with. Capacity is reported in
// cores and GB, so milli-units divide by 1000 and binary mega-units by 1024.
var (
	milliUnits      = sets.New[string]("milli-units", "milicores", "millicores", "m")
	binaryMegaUnits = sets.New[string]("binary-mega-units", "MiB", "Mi")
)

// ConvertUnit normalizes a usage value to the base unit used by capacity
// figures. Unrecognized units pass through unchanged.
func ConvertUnit(value float64, unit string) float64 {
	unit = strings.TrimSpace(unit)
	switch {
	case milliUnits.Has(unit):
		return value / 1000
	case binaryMegaUnits.Has(unit):
		return value / 1024
	default:
		return value
	}
}

// IsKnownUnit reports whether ConvertUnit rescales values tagged with unit.
func IsKnownUnit(unit string) bool {
	unit = strings.TrimSpace(unit)
	return milliUnits.Has(unit) || binaryMegaUnits.Has(unit)
}
