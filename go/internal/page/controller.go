package page

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Du7chy/Seedlings/go/internal/actions"
	"github.com/Du7chy/Seedlings/go/internal/chat"
	"github.com/Du7chy/Seedlings/go/internal/growth"
	"github.com/Du7chy/Seedlings/go/internal/inventory"
	"github.com/Du7chy/Seedlings/go/internal/models"
	"github.com/Du7chy/Seedlings/go/internal/notice"
	"github.com/Du7chy/Seedlings/go/internal/realtime"
	"github.com/Du7chy/Seedlings/go/internal/room"
	"github.com/Du7chy/Seedlings/go/internal/shop"
)

// DefaultPollInterval is how often authoritative state is refetched without any trigger
const DefaultPollInterval = 60 * time.Second

const (
	roomInitFailedText   = "Error initialising room! Please refresh the page."
	connectionErrorText  = "Connection error!"
	connectionBackText   = "Connection restored!"
	insufficientFundText = "You do not have enough money to purchase this!"
)

// API is the request/response surface the page reads from and acts through
type API interface {
	actions.API
	GetInventory(ctx context.Context) (*models.Inventory, error)
	GetGrowingPlants(ctx context.Context) ([]models.GrowingPlant, error)
	GetBalance(ctx context.Context) (int, error)
	GetShopItems(ctx context.Context) ([]models.ShopItem, error)
	GetItemPrice(ctx context.Context, seedID int) (int, error)
}

// Conn is the duplex connection as seen by the page
type Conn interface {
	realtime.Emitter
	Events() <-chan realtime.Event
}

type Config struct {
	// RawRoomID is the room identifier embedded in the page. Empty means no room context.
	RawRoomID    string
	PollInterval time.Duration
	NoticeTTL    time.Duration
	ChatLogLimit int
}

// Controller is the page-level context object. It owns every component and
// runs them on one goroutine: connection events, growth ticks, poll ticks,
// user commands and fetch results are all applied inside Run.
type Controller struct {
	cfg      Config
	clock    clockwork.Clock
	api      API
	conn     Conn
	renderer Renderer

	binder     *room.Binder
	chat       *chat.Sync
	growth     *growth.Reconciler
	ticks      chan growth.Tick
	inventory  inventory.View
	shop       *shop.Selection
	notices    *notice.Center
	dispatcher *actions.Dispatcher

	inbox chan Msg
	done  chan struct{}

	workCtx    context.Context
	cancelWork context.CancelFunc
	wg         sync.WaitGroup

	connected     bool
	left          bool
	plantsSeq     uint64
	plantsApplied uint64
}

// New builds a controller. A missing or malformed room identifier disables the
// room features only; the rest of the page keeps working.
func New(cfg Config, clock clockwork.Clock, api API, conn Conn, renderer Renderer) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ChatLogLimit <= 0 {
		cfg.ChatLogLimit = chat.DefaultLogLimit
	}

	c := &Controller{
		cfg:      cfg,
		clock:    clock,
		api:      api,
		conn:     conn,
		renderer: renderer,
		ticks:    make(chan growth.Tick, 64),
		shop:     shop.NewSelection(),
		inbox:    make(chan Msg, 64),
		done:     make(chan struct{}),
	}
	c.growth = growth.NewReconciler(clock, c.ticks)
	c.notices = notice.NewCenter(clock, cfg.NoticeTTL, func() { c.tryPost(noticesChanged{}) })
	c.dispatcher = actions.NewDispatcher(api, c.notices)

	binder, err := room.Bind(cfg.RawRoomID, conn)
	if err != nil {
		if !errors.Is(err, room.ErrMissingRoomID) {
			c.notices.Error(roomInitFailedText)
		}
	} else {
		c.binder = binder
		c.chat = chat.NewSync(conn, binder.RoomID(), cfg.ChatLogLimit)
	}
	return c
}

// Post hands a message to the loop. It returns false once the loop has exited.
func (c *Controller) Post(msg Msg) bool {
	select {
	case c.inbox <- msg:
		return true
	case <-c.done:
		return false
	}
}

// Stop ends Run, emitting leave for the bound room first
func (c *Controller) Stop() {
	c.Post(stop{})
}

func (c *Controller) tryPost(msg Msg) {
	select {
	case c.inbox <- msg:
	default:
	}
}

// Run drives the page until ctx is cancelled, Stop is called or the room is left
func (c *Controller) Run(ctx context.Context) error {
	c.workCtx, c.cancelWork = context.WithCancel(ctx)
	defer func() {
		c.cancelWork()
		c.wg.Wait()
		close(c.done)
	}()

	poll := c.clock.NewTicker(c.cfg.PollInterval)
	defer poll.Stop()

	log.Info().
		Int("room_id", c.roomID()).
		Dur("poll_interval", c.cfg.PollInterval).
		Msg("page started")

	c.refresh("initial load")
	c.render()

	events := c.conn.Events()
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil

		case ev, ok := <-events:
			if !ok {
				events = nil
				c.connected = false
				log.Warn().Msg("connection stream closed")
				break
			}
			c.handleEvent(ev)

		case tick := <-c.ticks:
			if c.growth.HandleTick(tick) {
				c.refresh("plant ready")
			}

		case <-poll.Chan():
			c.refresh("poll")

		case msg := <-c.inbox:
			if _, ok := msg.(stop); ok {
				c.shutdown()
				return nil
			}
			c.handle(msg)
			if c.left {
				c.render()
				c.shutdown()
				return nil
			}
		}
		c.render()
	}
}

func (c *Controller) roomID() int {
	if c.binder == nil {
		return 0
	}
	return c.binder.RoomID()
}

func (c *Controller) render() {
	if c.renderer != nil {
		c.renderer.Render(c.snapshot())
	}
}

func (c *Controller) shutdown() {
	if c.binder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = c.binder.Leave(ctx)
		cancel()
	}
	c.growth.Stop()
	c.notices.Close()
	log.Info().Int("room_id", c.roomID()).Msg("page stopped")
}

func (c *Controller) handleEvent(ev realtime.Event) {
	if c.binder != nil {
		if _, err := c.binder.HandleEvent(c.workCtx, ev); err != nil {
			log.Error().Err(err).Msg("failed to join room channel")
		}
		if c.chat.HandleEvent(ev) {
			return
		}
	}

	switch ev := ev.(type) {
	case realtime.Connected:
		c.connected = true
	case realtime.Reconnected:
		c.connected = true
		c.notices.Success(connectionBackText)
		c.refresh("reconnect")
	case realtime.Disconnected:
		c.connected = false
	case realtime.ConnectError:
		c.connected = false
		c.notices.Error(connectionErrorText)
	case realtime.ServerError:
		c.notices.Error(ev.Message)
	}
}

func (c *Controller) handle(msg Msg) {
	switch m := msg.(type) {
	case Refresh:
		c.refresh(m.Reason)

	case SendChat:
		if c.chat == nil {
			return
		}
		if _, err := c.chat.SendMessage(c.workCtx, m.Text); err != nil {
			log.Warn().Err(err).Msg("chat not sent")
		}

	case SelectSeed:
		c.inventory.ToggleSeed(m.SeedID)

	case PlantSelected:
		seedID, ok := c.inventory.SelectedSeed()
		if !ok {
			return
		}
		c.dispatch(func(ctx context.Context) actions.Result { return c.dispatcher.PlantSeed(ctx, seedID) })

	case Harvest:
		view, ok := c.growth.Board().View(m.PlantID)
		if !ok || !view.CanHarvest() {
			log.Debug().Int("plant_id", m.PlantID).Msg("plant not ready to harvest")
			return
		}
		c.dispatch(func(ctx context.Context) actions.Result { return c.dispatcher.Harvest(ctx, m.PlantID) })

	case OpenShop:
		c.shop.Open()
		c.fetchBalance()
		c.fetchShopItems()
		c.fetchInventory()

	case CloseShop:
		c.shop.Close()

	case SelectItem:
		if c.shop.Toggle(m.ItemID) {
			c.fetchPrice(m.ItemID)
		}
		c.fetchBalance()

	case SetQuantity:
		c.shop.SetQuantity(m.Quantity)

	case BuySelected:
		itemID, quantity, err := c.shop.Check()
		if err != nil {
			if errors.Is(err, shop.ErrInsufficientFunds) {
				c.notices.Error(insufficientFundText)
			}
			log.Debug().Err(err).Msg("buy blocked")
			return
		}
		c.dispatch(func(ctx context.Context) actions.Result { return c.dispatcher.Buy(ctx, itemID, quantity) })

	case Sell:
		c.dispatch(func(ctx context.Context) actions.Result { return c.dispatcher.Sell(ctx, m.EntryID) })

	case Leave:
		if c.binder == nil {
			return
		}
		roomID := c.binder.RoomID()
		c.dispatch(func(ctx context.Context) actions.Result { return c.dispatcher.LeaveRoom(ctx, roomID) })

	case DismissNotice:
		c.notices.Dismiss(m.ID)

	case CloseView:
		c.growth.Board().Remove(m.PlantID)

	case plantsFetched:
		c.applyPlants(m)

	case inventoryFetched:
		if m.err != nil {
			log.Error().Err(m.err).Msg("failed to load inventory")
			return
		}
		c.inventory.Set(*m.inv)

	case balanceFetched:
		if m.err != nil {
			log.Error().Err(m.err).Msg("failed to get balance")
			c.shop.BalanceFailed()
			return
		}
		c.shop.SetBalance(m.balance)

	case shopItemsFetched:
		if m.err != nil {
			log.Error().Err(m.err).Msg("failed to load shop items")
			return
		}
		c.shop.SetItems(m.items)

	case priceFetched:
		if m.err != nil {
			log.Error().Err(m.err).Int("item_id", m.itemID).Msg("failed to get item price")
			c.shop.PriceFailed(m.itemID)
			return
		}
		c.shop.SetPrice(m.itemID, m.price)

	case actionDone:
		c.applyAction(m.res)

	case noticesChanged:
	}
}

func (c *Controller) applyAction(res actions.Result) {
	if !res.OK {
		return
	}

	switch res.Action {
	case actions.ActionPlant:
		c.inventory.ClearSelection()
	case actions.ActionBuy:
		c.shop.Bought(res.Balance)
	case actions.ActionSell:
		if res.Balance != nil {
			c.shop.SetBalance(*res.Balance)
		}
	case actions.ActionLeave:
		c.left = true
		return
	}

	if res.Refresh.Has(actions.RefreshGrowing) {
		c.fetchPlants()
	}
	if res.Refresh.Has(actions.RefreshInventory) {
		c.fetchInventory()
	}
	if res.Refresh.Has(actions.RefreshShop) && c.shop.IsOpen() {
		c.fetchShopItems()
	}
	if res.Refresh.Has(actions.RefreshBalance) && res.Balance == nil {
		c.fetchBalance()
	}
}

// applyPlants applies a growing-plants fetch unless a newer one already landed
func (c *Controller) applyPlants(m plantsFetched) {
	if m.seq <= c.plantsApplied {
		return
	}
	if m.err != nil {
		log.Error().Err(m.err).Msg("failed to load growing plants")
		return
	}
	c.plantsApplied = m.seq
	c.growth.Sync(m.plants)
}

// refresh is the single path for every authoritative refetch
func (c *Controller) refresh(reason string) {
	log.Debug().Str("reason", reason).Msg("refreshing")
	c.fetchPlants()
	c.fetchInventory()
}

func (c *Controller) fetchPlants() {
	c.plantsSeq++
	seq := c.plantsSeq
	c.goFetch(func(ctx context.Context) Msg {
		plants, err := c.api.GetGrowingPlants(ctx)
		return plantsFetched{seq: seq, plants: plants, err: err}
	})
}

func (c *Controller) fetchInventory() {
	c.goFetch(func(ctx context.Context) Msg {
		inv, err := c.api.GetInventory(ctx)
		return inventoryFetched{inv: inv, err: err}
	})
}

func (c *Controller) fetchBalance() {
	c.goFetch(func(ctx context.Context) Msg {
		balance, err := c.api.GetBalance(ctx)
		return balanceFetched{balance: balance, err: err}
	})
}

func (c *Controller) fetchShopItems() {
	c.goFetch(func(ctx context.Context) Msg {
		items, err := c.api.GetShopItems(ctx)
		return shopItemsFetched{items: items, err: err}
	})
}

func (c *Controller) fetchPrice(itemID int) {
	c.goFetch(func(ctx context.Context) Msg {
		price, err := c.api.GetItemPrice(ctx, itemID)
		return priceFetched{itemID: itemID, price: price, err: err}
	})
}

func (c *Controller) dispatch(do func(ctx context.Context) actions.Result) {
	c.goFetch(func(ctx context.Context) Msg {
		return actionDone{res: do(ctx)}
	})
}

// goFetch runs work off the loop and posts its result back
func (c *Controller) goFetch(work func(ctx context.Context) Msg) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		msg := work(c.workCtx)
		select {
		case c.inbox <- msg:
		case <-c.workCtx.Done():
		}
	}()
}
