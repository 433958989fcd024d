package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalHailMagnitude(t *testing.T) {
	// NOAA feeds ship both spellings of the unit
	for _, unit := range []string{"in", "inches"} {
		sig := &Signal{Variant: SignalStormEvent, Magnitude: 1.8, MagnitudeUnit: unit}
		hail, ok := sig.HailMagnitude()
		assert.True(t, ok, unit)
		assert.Equal(t, 1.8, hail, unit)
	}

	_, ok := (&Signal{Variant: SignalStormEvent, Magnitude: 80, MagnitudeUnit: "mph"}).HailMagnitude()
	assert.False(t, ok)

	_, ok = (&Signal{Variant: SignalViolation, Magnitude: 1.8, MagnitudeUnit: "inches"}).HailMagnitude()
	assert.False(t, ok, "only storm events carry hail")
}

func TestSignalWindMagnitude(t *testing.T) {
	wind, ok := (&Signal{Variant: SignalStormEvent, Magnitude: 80, MagnitudeUnit: "mph"}).WindMagnitude()
	assert.True(t, ok)
	assert.Equal(t, 80.0, wind)

	_, ok = (&Signal{Variant: SignalStormEvent, Magnitude: 1.8, MagnitudeUnit: "in"}).WindMagnitude()
	assert.False(t, ok)
}
