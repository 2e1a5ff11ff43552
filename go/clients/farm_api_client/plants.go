package farm_api_client

import (
	"context"
	"fmt"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

func (c *FarmApiClient) GetGrowingPlants(ctx context.Context) ([]models.GrowingPlant, error) {
	body, err := c.Get(ctx, GrowingPlantsEndpoint)
	if err != nil {
		return nil, wrapError("get growing plants", err)
	}

	var plants []models.GrowingPlant
	if err := decodeInto("get growing plants", body, &plants); err != nil {
		return nil, err
	}
	if plants == nil {
		plants = []models.GrowingPlant{}
	}
	return plants, nil
}

func (c *FarmApiClient) PlantSeed(ctx context.Context, seedID int) (*ActionResponse, error) {
	body, err := c.PostJSON(ctx, PlantSeedEndpoint, map[string]int{"seed_id": seedID})
	if err != nil {
		return nil, wrapError("plant seed", err)
	}
	return decodeAction("plant seed", body)
}

func (c *FarmApiClient) HarvestPlant(ctx context.Context, plantID int) (*ActionResponse, error) {
	body, err := c.PostJSON(ctx, fmt.Sprintf(HarvestPlantEndpointF, plantID), nil)
	if err != nil {
		return nil, wrapError("harvest plant", err)
	}
	return decodeAction("harvest plant", body)
}
