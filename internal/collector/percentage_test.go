package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertUnit(t *testing.T) {
	assert.Equal(t, 1.0, ConvertUnit(1000, "milicores"))
	assert.Equal(t, 1.0, ConvertUnit(1000, "millicores"))
	assert.Equal(t, 0.25, ConvertUnit(250, "m"))
	assert.Equal(t, 1.0, ConvertUnit(1024, "MiB"))
	assert.Equal(t, 2.0, ConvertUnit(2048, " Mi "))
	assert.Equal(t, 1024.0, ConvertUnit(1024, "cores"))
	assert.Equal(t, 7.5, ConvertUnit(7.5, ""))
	assert.Equal(t, 1.0, ConvertUnit(1000, "milli-units"))
	assert.Equal(t, 1.0, ConvertUnit(1024, "binary-mega-units"))
	assert.Equal(t, 42.0, ConvertUnit(42, "cores"))

	assert.True(t, IsKnownUnit("MiB"))
	assert.True(t, IsKnownUnit("milli-units"))
	assert.True(t, IsKnownUnit("binary-mega-units"))
	assert.False(t, IsKnownUnit("GB"))
}

func TestPercentage_ZeroCapacity(t *testing.T) {
	for _, unit := range []string{"milicores", "MiB", "cores", ""} {
		for _, usage := range []float64{0, 1, 1e9, -5} {
			assert.Equal(t, 0.0, Percentage(0, usage, unit), "usage=%v unit=%q", usage, unit)
		}
	}
}

func TestPercentage_Rounding(t *testing.T) {
	assert.Equal(t, 50.0, Percentage(4, 2000, "milicores"))
	assert.Equal(t, 33.3333, Percentage(3, 1, "cores"))
	assert.Equal(t, 66.6667, Percentage(3, 2, "cores"))
	assert.Equal(t, 0.0122, Percentage(8, 1, "MiB"))
}

func TestPercentage_MonotonicInUsage(t *testing.T) {
	for _, capacity := range []float64{0.5, 1, 4, 96} {
		prev := Percentage(capacity, 0, "milicores")
		for usage := 1.0; usage <= 20000; usage += 137 {
			got := Percentage(capacity, usage, "milicores")
			assert.GreaterOrEqual(t, got, prev, "capacity=%v usage=%v", capacity, usage)
			prev = got
		}
	}
}
