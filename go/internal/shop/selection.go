package shop

import (
	"errors"
	"fmt"

	"github.com/Du7chy/Seedlings/go/internal/models"
)

var (
	ErrNoSelection       = errors.New("no item selected")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrPriceUnknown      = errors.New("price unknown")
	ErrInsufficientFunds = errors.New("you do not have enough money to purchase this")
)

// Selection is the shop popup state: the catalog, the selected item with its
// last fetched price, the balance and the requested quantity. A failed price
// fetch leaves the price unknown, which keeps buying disabled.
type Selection struct {
	open  bool
	items []models.ShopItem

	itemID     int
	selected   bool
	price      int
	priceKnown bool

	balance  int
	quantity int
}

func NewSelection() *Selection {
	return &Selection{quantity: 1}
}

func (s *Selection) Open() {
	s.open = true
}

// Close hides the shop and clears the selection
func (s *Selection) Close() {
	s.open = false
	s.clear()
}

func (s *Selection) IsOpen() bool {
	return s.open
}

func (s *Selection) SetItems(items []models.ShopItem) {
	s.items = append([]models.ShopItem(nil), items...)
}

func (s *Selection) Items() []models.ShopItem {
	return append([]models.ShopItem(nil), s.items...)
}

// Toggle selects itemID, or clears the selection when it is already selected.
// It reports whether the price of the new selection has to be fetched.
func (s *Selection) Toggle(itemID int) bool {
	if s.selected && s.itemID == itemID {
		s.selected = false
		s.itemID = 0
		s.price = 0
		s.priceKnown = false
		return false
	}
	s.selected = true
	s.itemID = itemID
	s.price = 0
	s.priceKnown = false
	return true
}

// Selected returns the selected item ID
func (s *Selection) Selected() (int, bool) {
	return s.itemID, s.selected
}

// SetPrice records a fetched price. Results for an item that is no longer selected are ignored.
func (s *Selection) SetPrice(itemID, price int) {
	if !s.selected || s.itemID != itemID {
		return
	}
	s.price = price
	s.priceKnown = true
}

// PriceFailed marks the price of itemID as unknown
func (s *Selection) PriceFailed(itemID int) {
	if !s.selected || s.itemID != itemID {
		return
	}
	s.price = 0
	s.priceKnown = false
}

func (s *Selection) SetBalance(balance int) {
	s.balance = balance
}

// BalanceFailed falls back to a zero balance
func (s *Selection) BalanceFailed() {
	s.balance = 0
}

func (s *Selection) Balance() int {
	return s.balance
}

func (s *Selection) SetQuantity(q int) {
	s.quantity = q
}

func (s *Selection) Quantity() int {
	return s.quantity
}

// Total returns price * quantity. ok is false while the price is unknown.
func (s *Selection) Total() (total int, ok bool) {
	if !s.selected || !s.priceKnown {
		return 0, false
	}
	return s.price * s.quantity, true
}

// Check validates a purchase without sending anything
func (s *Selection) Check() (itemID, quantity int, err error) {
	if !s.selected {
		return 0, 0, ErrNoSelection
	}
	if s.quantity < 1 {
		return 0, 0, ErrInvalidQuantity
	}
	total, ok := s.Total()
	if !ok {
		return 0, 0, ErrPriceUnknown
	}
	if total > s.balance {
		return 0, 0, fmt.Errorf("%w: total %d, balance %d", ErrInsufficientFunds, total, s.balance)
	}
	return s.itemID, s.quantity, nil
}

// CanBuy reports whether the buy control is enabled
func (s *Selection) CanBuy() bool {
	_, _, err := s.Check()
	return err == nil
}

// Bought applies a confirmed purchase
func (s *Selection) Bought(balance *int) {
	if balance != nil {
		s.balance = *balance
	}
	s.clear()
}

func (s *Selection) clear() {
	s.selected = false
	s.itemID = 0
	s.price = 0
	s.priceKnown = false
	s.quantity = 1
}
