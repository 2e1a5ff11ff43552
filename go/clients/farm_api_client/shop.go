package farm_api_client

import (
	"context"
	"fmt"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

func (c *FarmApiClient) GetShopItems(ctx context.Context) ([]models.ShopItem, error) {
	body, err := c.Get(ctx, ShopItemsEndpoint)
	if err != nil {
		return nil, wrapError("get shop items", err)
	}

	var items []models.ShopItem
	if err := decodeInto("get shop items", body, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *FarmApiClient) GetItemPrice(ctx context.Context, seedID int) (int, error) {
	body, err := c.Get(ctx, fmt.Sprintf(ShopItemEndpointF, seedID))
	if err != nil {
		return 0, wrapError("get item price", err)
	}

	var raw struct {
		Price *int `json:"price"`
	}
	if err := decodeInto("get item price", body, &raw); err != nil {
		return 0, err
	}
	if raw.Price == nil {
		return 0, fmt.Errorf("get item price: %w: missing price", ErrMalformedResponse)
	}
	return *raw.Price, nil
}

type buyRequest struct {
	SeedID   int `json:"seed_id"`
	Quantity int `json:"quantity"`
}

func (c *FarmApiClient) Buy(ctx context.Context, seedID, quantity int) (*ActionResponse, error) {
	body, err := c.PostJSON(ctx, ShopBuyEndpoint, buyRequest{SeedID: seedID, Quantity: quantity})
	if err != nil {
		return nil, wrapError("buy", err)
	}
	return decodeAction("buy", body)
}

func (c *FarmApiClient) Sell(ctx context.Context, invEntryID int) (*ActionResponse, error) {
	body, err := c.PostJSON(ctx, ShopSellEndpoint, map[string]int{"inv_entry_id": invEntryID})
	if err != nil {
		return nil, wrapError("sell", err)
	}
	return decodeAction("sell", body)
}
