package page

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Du7chy/Seedlings/go/clients/farm_api_client"
	"github.com/Du7chy/Seedlings/go/internal/models"
	"github.com/Du7chy/Seedlings/go/internal/realtime"
	"github.com/Du7chy/Seedlings/go/internal/realtime/realtimetest"
)

type fakeAPI struct {
	mu sync.Mutex

	plants    []models.GrowingPlant
	inventory models.Inventory
	balance   int
	prices    map[int]int
	priceErr  error

	calls map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		inventory: models.Inventory{Seeds: []models.SeedStack{}, Plants: []models.PlantItem{}},
		prices:    map[int]int{},
		calls:     map[string]int{},
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) called(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) setPlants(plants []models.GrowingPlant) {
	f.mu.Lock()
	f.plants = plants
	f.mu.Unlock()
}

func (f *fakeAPI) GetInventory(context.Context) (*models.Inventory, error) {
	f.called("inventory")
	f.mu.Lock()
	defer f.mu.Unlock()
	inv := f.inventory
	return &inv, nil
}

func (f *fakeAPI) GetGrowingPlants(context.Context) ([]models.GrowingPlant, error) {
	f.called("growing")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.GrowingPlant(nil), f.plants...), nil
}

func (f *fakeAPI) GetBalance(context.Context) (int, error) {
	f.called("balance")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeAPI) GetShopItems(context.Context) ([]models.ShopItem, error) {
	f.called("shop_items")
	return []models.ShopItem{{ID: 1, Name: "Carrot", Price: 10}}, nil
}

func (f *fakeAPI) GetItemPrice(_ context.Context, seedID int) (int, error) {
	f.called("price")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.prices[seedID], nil
}

func (f *fakeAPI) ok(name string) (*farm_api_client.ActionResponse, error) {
	f.called(name)
	return &farm_api_client.ActionResponse{Success: true, Message: name + " ok"}, nil
}

func (f *fakeAPI) PlantSeed(context.Context, int) (*farm_api_client.ActionResponse, error) {
	return f.ok("plant")
}

func (f *fakeAPI) HarvestPlant(context.Context, int) (*farm_api_client.ActionResponse, error) {
	return f.ok("harvest")
}

func (f *fakeAPI) Buy(context.Context, int, int) (*farm_api_client.ActionResponse, error) {
	return f.ok("buy")
}

func (f *fakeAPI) Sell(context.Context, int) (*farm_api_client.ActionResponse, error) {
	return f.ok("sell")
}

func (f *fakeAPI) JoinRoom(context.Context, farm_api_client.JoinRequest) (*farm_api_client.ActionResponse, error) {
	return f.ok("join")
}

func (f *fakeAPI) LeaveRoom(context.Context, int) (*farm_api_client.ActionResponse, error) {
	return f.ok("leave")
}

func (f *fakeAPI) CreateRoom(context.Context, farm_api_client.CreateRoomRequest) (*farm_api_client.ActionResponse, error) {
	return f.ok("create")
}

type fakeConn struct {
	*realtimetest.Recorder
	events chan realtime.Event
}

func newFakeConn() *fakeConn {
	return &fakeConn{Recorder: &realtimetest.Recorder{}, events: make(chan realtime.Event, 16)}
}

func (c *fakeConn) Events() <-chan realtime.Event {
	return c.events
}

type snapshots struct {
	mu   sync.Mutex
	last Snapshot
	n    int
}

func (s *snapshots) Render(snap Snapshot) {
	s.mu.Lock()
	s.last = snap
	s.n++
	s.mu.Unlock()
}

func (s *snapshots) get() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

type harness struct {
	api   *fakeAPI
	conn  *fakeConn
	clock *clockwork.FakeClock
	view  *snapshots
	ctrl  *Controller
	done  chan error
}

func startPage(t *testing.T, rawRoomID string, setup func(api *fakeAPI)) *harness {
	t.Helper()
	h := &harness{
		api:   newFakeAPI(),
		conn:  newFakeConn(),
		clock: clockwork.NewFakeClock(),
		view:  &snapshots{},
		done:  make(chan error, 1),
	}
	if setup != nil {
		setup(h.api)
	}
	h.ctrl = New(Config{RawRoomID: rawRoomID}, h.clock, h.api, h.conn, h.view)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { h.done <- h.ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("controller did not stop")
		}
	})
	return h
}

func (h *harness) waitFor(t *testing.T, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return cond(h.view.get()) }, 2*time.Second, 5*time.Millisecond)
	return h.view.get()
}

func (h *harness) waitCalls(t *testing.T, name string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.api.count(name) >= n }, 2*time.Second, 5*time.Millisecond)
}

func TestJoinOnConnectAndRejoinOnReconnect(t *testing.T) {
	h := startPage(t, "42", nil)

	h.conn.events <- realtime.Connected{ConnectionID: "a"}
	h.waitFor(t, func(s Snapshot) bool { return s.Connected })
	require.Len(t, h.conn.Named(realtime.EventJoin), 1)

	h.waitCalls(t, "growing", 1)

	h.conn.events <- realtime.Disconnected{Err: errors.New("gone")}
	h.conn.events <- realtime.Reconnected{ConnectionID: "b", Attempt: 2}
	snap := h.waitFor(t, func(s Snapshot) bool {
		return s.Connected && len(s.Notices) > 0
	})
	assert.Equal(t, "Connection restored!", snap.Notices[len(snap.Notices)-1].Text)

	joins := h.conn.Named(realtime.EventJoin)
	require.Len(t, joins, 2)
	assert.JSONEq(t, `{"room_id":"42"}`, string(joins[1].Data))

	// reconnect triggers the same refresh as a poll
	h.waitCalls(t, "growing", 2)
	h.waitCalls(t, "inventory", 2)
}

func TestEveryConnectErrorShowsNotice(t *testing.T) {
	h := startPage(t, "1", nil)

	h.conn.events <- realtime.ConnectError{Err: errors.New("refused"), Attempt: 1}
	h.conn.events <- realtime.ConnectError{Err: errors.New("refused"), Attempt: 2}
	h.conn.events <- realtime.StatusReceived{Message: "marker"}

	snap := h.waitFor(t, func(s Snapshot) bool { return len(s.Chat) == 1 })
	require.Len(t, snap.Notices, 2)
	assert.Equal(t, "Connection error!", snap.Notices[0].Text)
	assert.Equal(t, "Connection error!", snap.Notices[1].Text)
	assert.NotEqual(t, snap.Notices[0].ID, snap.Notices[1].ID)
}

func TestPollRefreshesGrowingPlants(t *testing.T) {
	h := startPage(t, "1", func(api *fakeAPI) {
		api.plants = []models.GrowingPlant{{ID: 1, Name: "Carrot", ElapsedTime: 0, GrowthTime: 600}}
	})
	h.waitFor(t, func(s Snapshot) bool { return len(s.Growing) == 1 })
	before := h.api.count("growing")

	h.clock.Advance(DefaultPollInterval)
	h.waitCalls(t, "growing", before+1)
}

func TestPlantBecomesReadyAndRefetches(t *testing.T) {
	h := startPage(t, "1", func(api *fakeAPI) {
		api.plants = []models.GrowingPlant{{ID: 1, Name: "Carrot", ElapsedTime: 8, GrowthTime: 10}}
	})
	h.waitFor(t, func(s Snapshot) bool { return len(s.Growing) == 1 })
	h.api.setPlants([]models.GrowingPlant{{ID: 1, Name: "Carrot", ElapsedTime: 10, GrowthTime: 10}})

	h.clock.Advance(time.Second)
	snap := h.waitFor(t, func(s Snapshot) bool { return len(s.Growing) == 1 && s.Growing[0].TimeLeft == 1 })
	assert.InDelta(t, 90, snap.Growing[0].Progress, 0.001)
	calls := h.api.count("growing")

	h.clock.Advance(time.Second)
	h.waitFor(t, func(s Snapshot) bool { return len(s.Growing) == 1 && s.Growing[0].Ready })
	h.waitCalls(t, "growing", calls+1)
}

func TestHiddenRowReturnsOnRefresh(t *testing.T) {
	h := startPage(t, "1", func(api *fakeAPI) {
		api.plants = []models.GrowingPlant{{ID: 1, Name: "Carrot", ElapsedTime: 0, GrowthTime: 600}}
	})
	h.waitFor(t, func(s Snapshot) bool { return len(s.Growing) == 1 })

	h.ctrl.Post(CloseView{PlantID: 1})
	h.waitFor(t, func(s Snapshot) bool { return len(s.Growing) == 0 })
	h.clock.Advance(time.Second)

	h.ctrl.Post(Refresh{Reason: "user"})
	h.waitFor(t, func(s Snapshot) bool { return len(s.Growing) == 1 })

	h.clock.Advance(time.Second)
	snap := h.waitFor(t, func(s Snapshot) bool { return len(s.Growing) == 1 && s.Growing[0].TimeLeft < 600 })
	assert.Equal(t, 1, snap.Growing[0].ID)
}

func TestChatFlow(t *testing.T) {
	h := startPage(t, "5", nil)

	h.ctrl.Post(SendChat{Text: "   "})
	h.ctrl.Post(SendChat{Text: "hello"})
	h.waitFor(t, func(s Snapshot) bool { return len(h.conn.Named(realtime.EventChat)) == 1 })

	chats := h.conn.Named(realtime.EventChat)
	assert.JSONEq(t, `{"room_id":"5","message":"hello"}`, string(chats[0].Data))

	h.conn.events <- realtime.ChatReceived{Message: models.ChatMessage{User: "ann", Content: "hello"}}
	h.conn.events <- realtime.MembersUpdated{Count: 2, Members: []models.Member{{ID: 1, Username: "ann"}, {ID: 2, Username: "bob"}}}
	h.conn.events <- realtime.MembersUpdated{Count: 0, Members: []models.Member{}}
	h.conn.events <- realtime.StatusReceived{Message: "done"}

	snap := h.waitFor(t, func(s Snapshot) bool { return len(s.Chat) == 2 })
	assert.Equal(t, 0, snap.MemberCount)
	assert.Empty(t, snap.Members)
}

func TestBuyBlockedWithoutFunds(t *testing.T) {
	h := startPage(t, "1", func(api *fakeAPI) {
		api.balance = 15
		api.prices[1] = 10
	})

	h.ctrl.Post(OpenShop{})
	h.ctrl.Post(SelectItem{ItemID: 1})
	h.ctrl.Post(SetQuantity{Quantity: 2})
	snap := h.waitFor(t, func(s Snapshot) bool {
		return s.Shop.TotalKnown && s.Shop.Balance == 15 && len(s.Shop.Items) == 1
	})
	assert.Equal(t, 20, snap.Shop.Total)
	assert.False(t, snap.Shop.CanBuy)

	h.ctrl.Post(BuySelected{})
	snap = h.waitFor(t, func(s Snapshot) bool { return len(s.Notices) == 1 })
	assert.Equal(t, "You do not have enough money to purchase this!", snap.Notices[0].Text)
	assert.Equal(t, 0, h.api.count("buy"))

	h.ctrl.Post(SetQuantity{Quantity: 1})
	h.waitFor(t, func(s Snapshot) bool { return s.Shop.CanBuy })
	h.ctrl.Post(BuySelected{})
	h.waitCalls(t, "buy", 1)
	h.waitFor(t, func(s Snapshot) bool { return !s.Shop.Selected })
}

func TestPriceFailureDisablesBuy(t *testing.T) {
	h := startPage(t, "1", func(api *fakeAPI) {
		api.balance = 1000
		api.priceErr = errors.New("boom")
	})

	h.ctrl.Post(OpenShop{})
	h.ctrl.Post(SelectItem{ItemID: 1})
	h.waitCalls(t, "price", 1)
	snap := h.waitFor(t, func(s Snapshot) bool { return s.Shop.Selected && s.Shop.Balance == 1000 })
	assert.False(t, snap.Shop.TotalKnown)
	assert.False(t, snap.Shop.CanBuy)
}

func TestHarvestRefreshesGrowingAndInventory(t *testing.T) {
	h := startPage(t, "1", func(api *fakeAPI) {
		api.plants = []models.GrowingPlant{{ID: 3, Name: "Corn", ElapsedTime: 20, GrowthTime: 20}}
	})
	h.waitFor(t, func(s Snapshot) bool { return len(s.Growing) == 1 && s.Growing[0].Ready })
	h.api.setPlants(nil)
	growing, inventory := h.api.count("growing"), h.api.count("inventory")

	h.ctrl.Post(Harvest{PlantID: 3})
	h.waitCalls(t, "harvest", 1)
	h.waitCalls(t, "growing", growing+1)
	h.waitCalls(t, "inventory", inventory+1)
	h.waitFor(t, func(s Snapshot) bool { return len(s.Growing) == 0 })
}

func TestSellWithoutBalanceRefetchesIt(t *testing.T) {
	h := startPage(t, "1", func(api *fakeAPI) {
		api.balance = 70
	})
	h.waitCalls(t, "inventory", 1)
	require.Equal(t, 0, h.api.count("balance"))

	h.ctrl.Post(Sell{EntryID: 5})
	h.waitCalls(t, "sell", 1)
	h.waitCalls(t, "balance", 1)
	h.waitFor(t, func(s Snapshot) bool { return s.Shop.Balance == 70 })
}

func TestHarvestIgnoredUntilReady(t *testing.T) {
	h := startPage(t, "1", func(api *fakeAPI) {
		api.plants = []models.GrowingPlant{{ID: 3, ElapsedTime: 1, GrowthTime: 20}}
	})
	h.waitFor(t, func(s Snapshot) bool { return len(s.Growing) == 1 })

	h.ctrl.Post(Harvest{PlantID: 3})
	h.ctrl.Post(Refresh{Reason: "test"})
	h.waitCalls(t, "growing", 2)
	assert.Equal(t, 0, h.api.count("harvest"))
}

func TestStopEmitsLeave(t *testing.T) {
	h := startPage(t, "8", nil)
	h.conn.events <- realtime.Connected{}
	h.waitFor(t, func(s Snapshot) bool { return s.Connected })

	h.ctrl.Stop()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
		h.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop")
	}

	leaves := h.conn.Named(realtime.EventLeave)
	require.Len(t, leaves, 1)
	assert.JSONEq(t, `{"room_id":"8"}`, string(leaves[0].Data))
}

func TestLeaveRoomPostsThenEmits(t *testing.T) {
	h := startPage(t, "8", nil)

	h.ctrl.Post(Leave{})
	select {
	case err := <-h.done:
		assert.NoError(t, err)
		h.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop after leaving")
	}

	assert.Equal(t, 1, h.api.count("leave"))
	assert.Len(t, h.conn.Named(realtime.EventLeave), 1)
	assert.True(t, h.view.get().Left)
}

func TestMalformedRoomIDKeepsPageUsable(t *testing.T) {
	h := startPage(t, "abc", func(api *fakeAPI) {
		api.plants = []models.GrowingPlant{{ID: 1, ElapsedTime: 0, GrowthTime: 5}}
	})

	snap := h.waitFor(t, func(s Snapshot) bool { return len(s.Growing) == 1 })
	assert.False(t, snap.RoomBound)
	require.Len(t, snap.Notices, 1)
	assert.Equal(t, "Error initialising room! Please refresh the page.", snap.Notices[0].Text)

	h.conn.events <- realtime.Connected{}
	h.ctrl.Post(SendChat{Text: "hi"})
	h.waitFor(t, func(s Snapshot) bool { return s.Connected })
	assert.Empty(t, h.conn.Recorder.Events())
}

func TestSeedSelectionAndPlant(t *testing.T) {
	h := startPage(t, "1", func(api *fakeAPI) {
		api.inventory = models.Inventory{
			Seeds:  []models.SeedStack{{ID: 4, Name: "Bean", Quantity: 1}},
			Plants: []models.PlantItem{},
		}
	})
	h.waitFor(t, func(s Snapshot) bool { return len(s.Seeds) == 1 })

	h.ctrl.Post(PlantSelected{})
	h.ctrl.Post(SelectSeed{SeedID: 4})
	h.waitFor(t, func(s Snapshot) bool { return s.SeedSelected })
	assert.Equal(t, 0, h.api.count("plant"))

	h.ctrl.Post(PlantSelected{})
	h.waitCalls(t, "plant", 1)
	h.waitFor(t, func(s Snapshot) bool { return !s.SeedSelected })
}
