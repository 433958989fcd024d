package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPropertyHasContact(t *testing.T) {
	assert.True(t, (&Property{OwnerOccupied: true, Address: "12 Vine St"}).HasContact())
	assert.False(t, (&Property{OwnerOccupied: false, Address: "12 Vine St"}).HasContact())
	assert.False(t, (&Property{OwnerOccupied: true}).HasContact(), "no address, no way to reach the owner")
}

func TestPropertyAgeYears(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	yearBuilt := 2006
	p := &Property{YearBuilt: &yearBuilt}
	age, ok := p.AgeYears(asOf)
	assert.True(t, ok)
	assert.InDelta(t, 20, age, 0.05)

	_, ok = (&Property{}).AgeYears(asOf)
	assert.False(t, ok)

	future := 2030
	age, ok = (&Property{YearBuilt: &future}).AgeYears(asOf)
	assert.True(t, ok)
	assert.Equal(t, 0.0, age, "not-yet-built clamps to zero")
}
