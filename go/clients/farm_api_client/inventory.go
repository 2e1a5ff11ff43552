package farm_api_client

import (
	"context"
	"fmt"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

func (c *FarmApiClient) GetInventory(ctx context.Context) (*models.Inventory, error) {
	body, err := c.Get(ctx, InventoryEndpoint)
	if err != nil {
		return nil, wrapError("get inventory", err)
	}

	var raw struct {
		Seeds  *[]models.SeedStack `json:"seeds"`
		Plants *[]models.PlantItem `json:"plants"`
	}
	if err := decodeInto("get inventory", body, &raw); err != nil {
		return nil, err
	}
	if raw.Seeds == nil || raw.Plants == nil {
		return nil, fmt.Errorf("get inventory: %w: seeds and plants are required", ErrMalformedResponse)
	}

	return &models.Inventory{Seeds: *raw.Seeds, Plants: *raw.Plants}, nil
}

func (c *FarmApiClient) GetBalance(ctx context.Context) (int, error) {
	body, err := c.Get(ctx, BalanceEndpoint)
	if err != nil {
		return 0, wrapError("get balance", err)
	}

	var raw struct {
		Balance *int `json:"balance"`
	}
	if err := decodeInto("get balance", body, &raw); err != nil {
		return 0, err
	}
	if raw.Balance == nil {
		return 0, fmt.Errorf("get balance: %w: missing balance", ErrMalformedResponse)
	}
	return *raw.Balance, nil
}
