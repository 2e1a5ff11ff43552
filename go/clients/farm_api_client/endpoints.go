package farm_api_client

const (
	// Default base URL of a local farm server
	DefaultBaseURL = "http://localhost:8080"

	// API Endpoints
	InventoryEndpoint     = "/api/inventory"
	GrowingPlantsEndpoint = "/api/plants/growing"
	PlantSeedEndpoint     = "/api/plants/plant-seed"
	HarvestPlantEndpointF = "/api/plants/%d/harvest"
	BalanceEndpoint       = "/api/user/balance"
	ShopItemsEndpoint     = "/api/shop/items"
	ShopItemEndpointF     = "/api/shop/items/%d"
	ShopBuyEndpoint       = "/api/shop/buy"
	ShopSellEndpoint      = "/api/shop/sell"
	RoomListEndpoint      = "/api/rooms/list"
	RoomCreateEndpoint    = "/api/rooms"
	RoomJoinEndpoint      = "/api/rooms/join"
	RoomLeaveEndpointF    = "/api/rooms/%d/leave"
	HealthEndpoint        = "/health"
	DuplexChannelPath     = "/ws"

	// Headers
	UserHeader = "X-Seedlings-User"
)
