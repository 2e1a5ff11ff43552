package models

// SeedStack is a seed type held in the inventory together with its count.
type SeedStack struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// PlantItem is a single harvested plant. ID is the inventory entry ID used when selling.
type PlantItem struct {
	ID      int    `json:"id"`
	PlantID int    `json:"plant_id,omitempty"`
	Name    string `json:"name"`
	Value   int    `json:"value"`
}

// Inventory is the response of GET /api/inventory.
type Inventory struct {
	Seeds  []SeedStack `json:"seeds"`
	Plants []PlantItem `json:"plants"`
}
