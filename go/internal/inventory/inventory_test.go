package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

func TestSeedSelection(t *testing.T) {
	var v View
	v.Set(models.Inventory{Seeds: []models.SeedStack{{ID: 1, Name: "Carrot", Quantity: 2}}})
	assert.False(t, v.CanPlant())

	v.ToggleSeed(1)
	id, ok := v.SelectedSeed()
	assert.True(t, ok)
	assert.Equal(t, 1, id)

	v.ToggleSeed(1)
	assert.False(t, v.CanPlant())
}

func TestRefreshDropsSeedsNoLongerHeld(t *testing.T) {
	var v View
	v.Set(models.Inventory{Seeds: []models.SeedStack{{ID: 1, Quantity: 1}, {ID: 2, Quantity: 5}}})
	v.ToggleSeed(1)

	v.Set(models.Inventory{Seeds: []models.SeedStack{{ID: 2, Quantity: 5}}, Plants: []models.PlantItem{{ID: 9, Name: "Carrot", Value: 4}}})
	assert.False(t, v.CanPlant())

	p, ok := v.Plant(9)
	assert.True(t, ok)
	assert.Equal(t, 4, p.Value)
	_, ok = v.Plant(1)
	assert.False(t, ok)
}
