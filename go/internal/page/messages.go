package page

import (
	"github.com/Du7chy/Seedlings/go/internal/actions"
	"github.com/Du7chy/Seedlings/go/internal/models"
)

// Msg is everything the controller loop accepts on its inbox
type Msg interface{ isMsg() }

// Refresh refetches the growing plants and the inventory. Poll ticks,
// reconnects and confirmed actions all go through it.
type Refresh struct {
	Reason string
}

// User commands

type SendChat struct {
	Text string
}

type SelectSeed struct {
	SeedID int
}

type PlantSelected struct{}

type Harvest struct {
	PlantID int
}

type OpenShop struct{}

type CloseShop struct{}

type SelectItem struct {
	ItemID int
}

type SetQuantity struct {
	Quantity int
}

type BuySelected struct{}

type Sell struct {
	EntryID int
}

type DismissNotice struct {
	ID string
}

// Leave leaves the room and ends the page
type Leave struct{}

// CloseView hides a plant row and stops its countdown until the next plant fetch
type CloseView struct {
	PlantID int
}

// Results posted back by off-loop work

type plantsFetched struct {
	seq    uint64
	plants []models.GrowingPlant
	err    error
}

type inventoryFetched struct {
	inv *models.Inventory
	err error
}

type balanceFetched struct {
	balance int
	err     error
}

type shopItemsFetched struct {
	items []models.ShopItem
	err   error
}

type priceFetched struct {
	itemID int
	price  int
	err    error
}

type actionDone struct {
	res actions.Result
}

type noticesChanged struct{}

type stop struct{}

func (Refresh) isMsg()          {}
func (SendChat) isMsg()         {}
func (SelectSeed) isMsg()       {}
func (PlantSelected) isMsg()    {}
func (Harvest) isMsg()          {}
func (OpenShop) isMsg()         {}
func (CloseShop) isMsg()        {}
func (SelectItem) isMsg()       {}
func (SetQuantity) isMsg()      {}
func (BuySelected) isMsg()      {}
func (Sell) isMsg()             {}
func (DismissNotice) isMsg()    {}
func (Leave) isMsg()            {}
func (CloseView) isMsg()        {}
func (plantsFetched) isMsg()    {}
func (inventoryFetched) isMsg() {}
func (balanceFetched) isMsg()   {}
func (shopItemsFetched) isMsg() {}
func (priceFetched) isMsg()     {}
func (actionDone) isMsg()       {}
func (noticesChanged) isMsg()   {}
func (stop) isMsg()             {}
