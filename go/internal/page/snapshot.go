package page

import (
	"github.com/Du7chy/Seedlings/go/internal/chat"
	"github.com/Du7chy/Seedlings/go/internal/growth"
	"github.com/Du7chy/Seedlings/go/internal/models"
	"github.com/Du7chy/Seedlings/go/internal/notice"
)

// Snapshot is the full page state handed to the Renderer after every change
type Snapshot struct {
	RoomID    int
	RoomBound bool
	Connected bool
	Left      bool

	Chat        []chat.Entry
	ChatInput   chat.Input
	MemberCount int
	Members     []models.Member

	Growing []growth.PlantView

	Seeds        []models.SeedStack
	Plants       []models.PlantItem
	SelectedSeed int
	SeedSelected bool

	Shop ShopSnapshot

	Notices []notice.Notice
}

type ShopSnapshot struct {
	Open         bool
	Items        []models.ShopItem
	SelectedItem int
	Selected     bool
	Quantity     int
	Total        int
	TotalKnown   bool
	Balance      int
	CanBuy       bool
}

// Renderer displays page state
type Renderer interface {
	Render(Snapshot)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(Snapshot)

func (f RendererFunc) Render(s Snapshot) { f(s) }

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		Connected: c.connected,
		Left:      c.left,
		Growing:   c.growth.Board().Views(),
		Seeds:     c.inventory.Seeds(),
		Plants:    c.inventory.Plants(),
		Notices:   c.notices.Active(),
	}
	s.SelectedSeed, s.SeedSelected = c.inventory.SelectedSeed()

	if c.binder != nil {
		s.RoomID = c.binder.RoomID()
		s.RoomBound = true
		s.Chat = c.chat.Log().Entries()
		s.ChatInput = c.chat.Input()
		s.MemberCount = c.chat.Roster().Count()
		s.Members = c.chat.Roster().Members()
	}

	total, known := c.shop.Total()
	itemID, selected := c.shop.Selected()
	s.Shop = ShopSnapshot{
		Open:         c.shop.IsOpen(),
		Items:        c.shop.Items(),
		SelectedItem: itemID,
		Selected:     selected,
		Quantity:     c.shop.Quantity(),
		Total:        total,
		TotalKnown:   known,
		Balance:      c.shop.Balance(),
		CanBuy:       c.shop.CanBuy(),
	}
	return s
}
