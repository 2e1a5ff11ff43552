package models

// ShopItem is a seed offered by the shop.
type ShopItem struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}
