package farmserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/Du7chy/Seedlings/go/clients/farm_api_client"
	"github.com/Du7chy/Seedlings/go/internal/models"
	"github.com/Du7chy/Seedlings/go/internal/realtime"
)

const roomClosedText = "The room has been closed."

type userKey struct{}

// Server serves the farm HTTP API and the duplex channel
type Server struct {
	store *Store
	conns *ConnectionManager
}

func NewServer(store *Store, conns *ConnectionManager) *Server {
	return &Server{store: store, conns: conns}
}

// Routes builds the HTTP handler: CORS, health, the duplex channel and the /api tree
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get(farm_api_client.HealthEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/info", s.info)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Get(farm_api_client.DuplexChannelPath, s.duplexChannel)

		r.Get(farm_api_client.InventoryEndpoint, s.inventory)
		r.Get(farm_api_client.GrowingPlantsEndpoint, s.growingPlants)
		r.Post(farm_api_client.PlantSeedEndpoint, s.plantSeed)
		r.Post("/api/plants/{plantID}/harvest", s.harvest)

		r.Get(farm_api_client.BalanceEndpoint, s.balance)
		r.Get(farm_api_client.ShopItemsEndpoint, s.shopItems)
		r.Get("/api/shop/items/{seedID}", s.shopItem)
		r.Post(farm_api_client.ShopBuyEndpoint, s.buy)
		r.Post(farm_api_client.ShopSellEndpoint, s.sell)

		r.Get(farm_api_client.RoomListEndpoint, s.listRooms)
		r.Post(farm_api_client.RoomCreateEndpoint, s.createRoom)
		r.Post(farm_api_client.RoomJoinEndpoint, s.joinRoom)
		r.Post("/api/rooms/{roomID}/leave", s.leaveRoom)
	})

	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins:   []string{"*"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}).Handler(r)
}

// requireUser identifies the caller by the user header, or the user query
// parameter for clients that cannot set headers on the upgrade request
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get(farm_api_client.UserHeader)
		if name == "" {
			name = r.URL.Query().Get("user")
		}
		if name == "" {
			writeJSON(w, http.StatusUnauthorized, farm_api_client.ActionResponse{Message: "Please log in to access this page."})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, name)))
	})
}

func userFrom(r *http.Request) string {
	name, _ := r.Context().Value(userKey{}).(string)
	return name
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

// writeStoreError maps ErrNotFound to 404 and anything else to 500
func writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, farm_api_client.ActionResponse{Message: http.StatusText(status)})
}

// decodeBody reads a JSON body. Bad bodies are answered with 400.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, farm_api_client.ActionResponse{Message: "Invalid request body!"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, farm_api_client.ActionResponse{Message: http.StatusText(http.StatusNotFound)})
		return 0, false
	}
	return id, true
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	stats := s.conns.GetConnectionStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":     "farmserver",
		"connections": stats["total_connections"],
		"rooms":       stats["active_rooms"],
	})
}

func (s *Server) duplexChannel(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if err := s.conns.UpgradeConnection(w, r, user); err != nil {
		// the upgrader has already answered the request
		log.Error().Err(err).Str("user", user).Msg("failed to upgrade WebSocket connection")
	}
}

func (s *Server) inventory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Inventory(userFrom(r)))
}

func (s *Server) growingPlants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Growing(userFrom(r)))
}

func (s *Server) plantSeed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SeedID int `json:"seed_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, s.store.PlantSeed(userFrom(r), body.SeedID))
}

func (s *Server) harvest(w http.ResponseWriter, r *http.Request) {
	plantID, ok := pathID(w, r, "plantID")
	if !ok {
		return
	}
	resp, err := s.store.Harvest(userFrom(r), plantID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Balance{Balance: s.store.Balance(userFrom(r))})
}

func (s *Server) shopItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ShopItems())
}

func (s *Server) shopItem(w http.ResponseWriter, r *http.Request) {
	seedID, ok := pathID(w, r, "seedID")
	if !ok {
		return
	}
	item, err := s.store.ShopItem(seedID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) buy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SeedID   int  `json:"seed_id"`
		Quantity *int `json:"quantity"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	quantity := 1
	if body.Quantity != nil {
		quantity = *body.Quantity
	}
	writeJSON(w, http.StatusOK, s.store.Buy(userFrom(r), body.SeedID, quantity))
}

func (s *Server) sell(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EntryID int `json:"inv_entry_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, s.store.Sell(userFrom(r), body.EntryID))
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"rooms":   s.store.ListRooms(r.URL.Query().Get("q")),
	})
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var body farm_api_client.CreateRoomRequest
	if !decodeBody(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, s.store.CreateRoom(userFrom(r), body))
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	var body farm_api_client.JoinRequest
	if !decodeBody(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, s.store.JoinRoom(userFrom(r), body))
}

func (s *Server) leaveRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	resp, err := s.store.LeaveRoom(userFrom(r), roomID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if _, open := s.store.Members(roomID); resp.Success && !open {
		s.conns.BroadcastToRoom(roomID, realtime.EventStatus, statusFrame{Message: roomClosedText})
	}
	writeJSON(w, http.StatusOK, resp)
}
