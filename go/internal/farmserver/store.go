package farmserver

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Du7chy/Seedlings/go/clients/farm_api_client"
	"github.com/Du7chy/Seedlings/go/internal/models"
	"github.com/Du7chy/Seedlings/go/internal/roomlist"
)

const (
	// StartingBalance is the currency a new user starts with
	StartingBalance = 100

	joinCodeLength  = 4
	joinCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxRoomMembers  = 10
	minRoomName     = 3
)

// ErrNotFound is returned for entities that do not exist at all, as opposed
// to requests the game rules reject
var ErrNotFound = errors.New("not found")

const oneRoomAtATime = "You can only be in one room at a time! Please leave your current room and try again!"

type user struct {
	id      int
	name    string
	balance int
	roomID  int
	seeds   map[int]int
	plants  []plantEntry
}

type plantEntry struct {
	id    int
	plant PlantSpec
	value int
}

type room struct {
	id         int
	name       string
	isPrivate  bool
	joinCode   string
	maxMembers int
	ownerID    int
	members    []int
}

type growingPlant struct {
	id         int
	userID     int
	seed       SeedSpec
	plantedAt  time.Time
	growthTime int
}

// Store holds every user, room and plant in memory. All methods are safe for
// concurrent use.
type Store struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	catalog *Catalog
	rng     *mrand.Rand

	users   map[string]*user
	rooms   map[int]*room
	growing map[int]*growingPlant

	nextUserID    int
	nextRoomID    int
	nextPlantID   int
	nextEntryID   int
	nextMessageID int
}

// NewStore creates an empty store. rng drives growth times and harvest rolls.
func NewStore(catalog *Catalog, clock clockwork.Clock, rng *mrand.Rand) *Store {
	return &Store{
		clock:   clock,
		catalog: catalog,
		rng:     rng,
		users:   make(map[string]*user),
		rooms:   make(map[int]*room),
		growing: make(map[int]*growingPlant),
	}
}

// userLocked returns the user called name, creating it on first sight
func (s *Store) userLocked(name string) *user {
	if u, ok := s.users[name]; ok {
		return u
	}
	s.nextUserID++
	u := &user{
		id:      s.nextUserID,
		name:    name,
		balance: StartingBalance,
		seeds:   make(map[int]int),
	}
	s.users[name] = u
	return u
}

func (s *Store) userByIDLocked(id int) *user {
	for _, u := range s.users {
		if u.id == id {
			return u
		}
	}
	return nil
}

func rejected(format string, args ...interface{}) *farm_api_client.ActionResponse {
	return &farm_api_client.ActionResponse{Success: false, Message: fmt.Sprintf(format, args...)}
}

// UserID returns the ID of the user called name
func (s *Store) UserID(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userLocked(name).id
}

// RoomOf returns the room the user is in, or 0
func (s *Store) RoomOf(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userLocked(name).roomID
}

func (s *Store) Balance(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userLocked(name).balance
}

func (s *Store) Inventory(name string) models.Inventory {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userLocked(name)

	inv := models.Inventory{Seeds: []models.SeedStack{}, Plants: []models.PlantItem{}}
	for seedID, qty := range u.seeds {
		seed, _ := s.catalog.Seed(seedID)
		inv.Seeds = append(inv.Seeds, models.SeedStack{ID: seedID, Name: seed.Name, Quantity: qty})
	}
	sort.Slice(inv.Seeds, func(i, j int) bool { return inv.Seeds[i].ID < inv.Seeds[j].ID })

	for _, p := range u.plants {
		inv.Plants = append(inv.Plants, models.PlantItem{ID: p.id, Name: p.plant.Name, Value: p.value})
	}
	return inv
}

// Growing lists the user's growing plants. Users outside a room see none.
func (s *Store) Growing(name string) []models.GrowingPlant {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userLocked(name)

	plants := []models.GrowingPlant{}
	if u.roomID == 0 {
		return plants
	}
	now := s.clock.Now()
	for _, g := range s.growing {
		if g.userID != u.id {
			continue
		}
		plants = append(plants, models.GrowingPlant{
			ID:          g.id,
			Name:        g.seed.Name,
			ElapsedTime: now.Sub(g.plantedAt).Seconds(),
			GrowthTime:  float64(g.growthTime),
		})
	}
	sort.Slice(plants, func(i, j int) bool { return plants[i].ID < plants[j].ID })
	return plants
}

func (s *Store) PlantSeed(name string, seedID int) *farm_api_client.ActionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userLocked(name)

	if u.roomID == 0 {
		return rejected("You must be in a room to plant a seed!")
	}
	if seedID == 0 {
		return rejected("No seed selected")
	}
	seed, ok := s.catalog.Seed(seedID)
	if !ok {
		return rejected("That seed does not exist!")
	}
	if u.seeds[seedID] <= 0 {
		return rejected("You do not have any %ss!", seed.Name)
	}

	u.seeds[seedID]--
	if u.seeds[seedID] == 0 {
		delete(u.seeds, seedID)
	}
	s.nextPlantID++
	s.growing[s.nextPlantID] = &growingPlant{
		id:         s.nextPlantID,
		userID:     u.id,
		seed:       seed,
		plantedAt:  s.clock.Now(),
		growthTime: seed.growthTime(s.rng),
	}

	return &farm_api_client.ActionResponse{Success: true, Message: fmt.Sprintf("Planted %s", seed.Name)}
}

// Harvest collects a ready plant. It returns ErrNotFound for unknown plant IDs.
func (s *Store) Harvest(name string, plantID int) (*farm_api_client.ActionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userLocked(name)

	g, ok := s.growing[plantID]
	if !ok {
		return nil, fmt.Errorf("plant %d: %w", plantID, ErrNotFound)
	}
	if g.userID != u.id {
		return rejected("This is not your plant!"), nil
	}
	if s.clock.Since(g.plantedAt) < time.Duration(g.growthTime)*time.Second {
		return rejected("This plant is not ready to be harvested!"), nil
	}

	plant, value := s.catalog.roll(g.seed, s.rng)
	s.nextEntryID++
	u.plants = append(u.plants, plantEntry{id: s.nextEntryID, plant: plant, value: value})
	delete(s.growing, plantID)

	return &farm_api_client.ActionResponse{
		Success: true,
		Message: fmt.Sprintf("You collected a %s [%s]!", plant.Name, plant.Rarity),
	}, nil
}

func (s *Store) ShopItems() []models.ShopItem {
	items := make([]models.ShopItem, 0, len(s.catalog.Seeds))
	for _, seed := range s.catalog.Seeds {
		items = append(items, models.ShopItem{ID: seed.ID, Name: seed.Name, Price: seed.Cost})
	}
	return items
}

func (s *Store) ShopItem(seedID int) (models.ShopItem, error) {
	seed, ok := s.catalog.Seed(seedID)
	if !ok {
		return models.ShopItem{}, fmt.Errorf("seed %d: %w", seedID, ErrNotFound)
	}
	return models.ShopItem{ID: seed.ID, Name: seed.Name, Price: seed.Cost}, nil
}

func (s *Store) Buy(name string, seedID, quantity int) *farm_api_client.ActionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userLocked(name)

	if seedID == 0 {
		return rejected("No seed selected!")
	}
	seed, ok := s.catalog.Seed(seedID)
	if !ok {
		return rejected("Seed does not exist!")
	}
	if quantity < 1 {
		return rejected("You must buy at least one seed!")
	}
	total := seed.Cost * quantity
	if u.balance < total {
		return rejected("You cannot afford x%d %s(s)!", quantity, seed.Name)
	}

	u.seeds[seedID] += quantity
	u.balance -= total
	balance := u.balance
	return &farm_api_client.ActionResponse{
		Success: true,
		Message: fmt.Sprintf("You bought x%d %s(s)!", quantity, seed.Name),
		Balance: &balance,
	}
}

func (s *Store) Sell(name string, entryID int) *farm_api_client.ActionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userLocked(name)

	if entryID == 0 {
		return rejected("No plant selected!")
	}
	for i, p := range u.plants {
		if p.id != entryID {
			continue
		}
		u.plants = append(u.plants[:i], u.plants[i+1:]...)
		u.balance += p.value
		balance := u.balance
		return &farm_api_client.ActionResponse{
			Success: true,
			Message: fmt.Sprintf("You sold %s [%s] for $%d!", p.plant.Name, p.plant.Rarity, p.value),
			Balance: &balance,
		}
	}
	return rejected("You do not have this plant!")
}

// ListRooms returns every room whose name contains query, case-insensitively
func (s *Store) ListRooms(query string) []models.RoomSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	query = strings.ToLower(strings.TrimSpace(query))
	rooms := []models.RoomSummary{}
	for _, r := range s.rooms {
		if query != "" && !strings.Contains(strings.ToLower(r.name), query) {
			continue
		}
		owner := ""
		if u := s.userByIDLocked(r.ownerID); u != nil {
			owner = u.name
		}
		rooms = append(rooms, models.RoomSummary{
			ID:          r.id,
			Name:        r.name,
			IsPrivate:   r.isPrivate,
			IsFull:      len(r.members) >= r.maxMembers,
			MemberCount: len(r.members),
			MaxMembers:  r.maxMembers,
			OwnerName:   owner,
		})
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}

func (s *Store) JoinRoom(name string, req farm_api_client.JoinRequest) *farm_api_client.ActionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userLocked(name)

	if (req.RoomID != 0) == (req.JoinCode != "") {
		return rejected("Please either click 'Join Room' for public rooms or enter a join code for private rooms.")
	}

	var r *room
	if req.JoinCode != "" {
		code := strings.ToUpper(strings.TrimSpace(req.JoinCode))
		for _, candidate := range s.rooms {
			if candidate.joinCode == code {
				r = candidate
				break
			}
		}
	} else {
		r = s.rooms[req.RoomID]
		if r != nil && r.isPrivate {
			return rejected("Private rooms can only be joined using a join code!")
		}
	}
	if r == nil {
		return rejected("Room not found!")
	}

	if u.roomID != 0 {
		resp := rejected(oneRoomAtATime)
		resp.Redirect = roomPath(u.roomID)
		return resp
	}
	if len(r.members) >= r.maxMembers {
		return rejected("Room is full!")
	}

	r.members = append(r.members, u.id)
	u.roomID = r.id
	return &farm_api_client.ActionResponse{
		Success:  true,
		Message:  fmt.Sprintf("Successfully joined %s!", r.name),
		Redirect: roomPath(r.id),
		RoomID:   r.id,
	}
}

// LeaveRoom removes the user from the room. The room closes when its owner
// leaves or its last member does. It returns ErrNotFound for unknown rooms.
func (s *Store) LeaveRoom(name string, roomID int) (*farm_api_client.ActionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userLocked(name)

	r, ok := s.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %d: %w", roomID, ErrNotFound)
	}
	idx := -1
	for i, id := range r.members {
		if id == u.id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return rejected("You are not a member of this room!"), nil
	}

	r.members = append(r.members[:idx], r.members[idx+1:]...)
	u.roomID = 0
	if r.ownerID == u.id || len(r.members) == 0 {
		s.closeRoomLocked(r)
	}

	return &farm_api_client.ActionResponse{Success: true, Message: "Left the room successfully"}, nil
}

func (s *Store) closeRoomLocked(r *room) {
	for _, id := range r.members {
		if m := s.userByIDLocked(id); m != nil && m.roomID == r.id {
			m.roomID = 0
		}
	}
	delete(s.rooms, r.id)
}

func (s *Store) CreateRoom(name string, req farm_api_client.CreateRoomRequest) *farm_api_client.ActionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userLocked(name)

	roomName := strings.TrimSpace(req.Name)
	switch {
	case roomName == "":
		return rejected("Room name is required!")
	case len(roomName) < minRoomName:
		return rejected("Room name must be at least %d characters!", minRoomName)
	case req.MaxMembers < 1 || req.MaxMembers > maxRoomMembers:
		return rejected("Maximum members must be between 1 and %d!", maxRoomMembers)
	}
	if u.roomID != 0 {
		resp := rejected(oneRoomAtATime)
		resp.Redirect = roomPath(u.roomID)
		return resp
	}

	code, err := s.newJoinCodeLocked()
	if err != nil {
		return rejected("Failed to create room!")
	}

	s.nextRoomID++
	r := &room{
		id:         s.nextRoomID,
		name:       roomName,
		isPrivate:  req.IsPrivate,
		joinCode:   code,
		maxMembers: req.MaxMembers,
		ownerID:    u.id,
		members:    []int{u.id},
	}
	s.rooms[r.id] = r
	u.roomID = r.id

	return &farm_api_client.ActionResponse{
		Success:  true,
		Message:  "Room created successfully!",
		Redirect: roomPath(r.id),
		RoomID:   r.id,
		JoinCode: code,
	}
}

func (s *Store) newJoinCodeLocked() (string, error) {
	for {
		code := make([]byte, joinCodeLength)
		for i := range code {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(joinCodeCharset))))
			if err != nil {
				return "", err
			}
			code[i] = joinCodeCharset[n.Int64()]
		}
		taken := false
		for _, r := range s.rooms {
			if r.joinCode == string(code) {
				taken = true
				break
			}
		}
		if !taken {
			return string(code), nil
		}
	}
}

// Members returns the roster of a room, in join order
func (s *Store) Members(roomID int) ([]models.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return nil, false
	}
	members := make([]models.Member, 0, len(r.members))
	for _, id := range r.members {
		if u := s.userByIDLocked(id); u != nil {
			members = append(members, models.Member{ID: u.id, Username: u.name, IsOwner: u.id == r.ownerID})
		}
	}
	return members, true
}

// NewChatMessage stamps a chat line with an ID and the current time
func (s *Store) NewChatMessage(name, content string) models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMessageID++
	return models.ChatMessage{
		ID:        s.nextMessageID,
		User:      name,
		Content:   content,
		Timestamp: s.clock.Now().UTC(),
	}
}

func roomPath(roomID int) string {
	return fmt.Sprintf(roomlist.RoomPathF, roomID)
}
