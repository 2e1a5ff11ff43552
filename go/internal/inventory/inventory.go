// Package inventory tracks the displayed inventory and the seed picked for planting.
package inventory

import "github.com/Du7chy/Seedlings/go/internal/models"

type View struct {
	seeds  []models.SeedStack
	plants []models.PlantItem

	seedID   int
	selected bool
}

// Set replaces the inventory with a fresh fetch. A selected seed that is no
// longer held is deselected.
func (v *View) Set(inv models.Inventory) {
	v.seeds = append([]models.SeedStack(nil), inv.Seeds...)
	v.plants = append([]models.PlantItem(nil), inv.Plants...)
	if v.selected && !v.holds(v.seedID) {
		v.ClearSelection()
	}
}

func (v *View) Seeds() []models.SeedStack {
	return append([]models.SeedStack(nil), v.seeds...)
}

func (v *View) Plants() []models.PlantItem {
	return append([]models.PlantItem(nil), v.plants...)
}

// ToggleSeed selects a seed for planting or deselects it if already selected
func (v *View) ToggleSeed(id int) {
	if v.selected && v.seedID == id {
		v.ClearSelection()
		return
	}
	v.seedID = id
	v.selected = true
}

// SelectedSeed returns the seed picked for planting
func (v *View) SelectedSeed() (int, bool) {
	return v.seedID, v.selected
}

func (v *View) ClearSelection() {
	v.seedID = 0
	v.selected = false
}

// CanPlant reports whether the plant action is enabled
func (v *View) CanPlant() bool {
	return v.selected
}

// Plant returns the sellable plant with the given inventory entry ID
func (v *View) Plant(entryID int) (models.PlantItem, bool) {
	for _, p := range v.plants {
		if p.ID == entryID {
			return p, true
		}
	}
	return models.PlantItem{}, false
}

func (v *View) holds(seedID int) bool {
	for _, s := range v.seeds {
		if s.ID == seedID && s.Quantity > 0 {
			return true
		}
	}
	return false
}
