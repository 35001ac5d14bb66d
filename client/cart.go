package client

import (
	"context"
	"errors"
	"sync"

	"github.com/tableside/venue-app/models"
)

// ErrEmptyCart rejects submission of a draft with no lines. This never
// reaches the network.
var ErrEmptyCart = errors.New("cart is empty")

// MenuProvider resolves a menu item id against the current menu snapshot.
// The poller's Snapshot satisfies it.
type MenuProvider interface {
	MenuItem(id uint) (models.MenuItem, bool)
}

// CartLine is one quantity-merged draft line. Name and price are snapshots
// taken when the item was first added; the server re-resolves both at
// submission, so these exist purely for display.
type CartLine struct {
	MenuItemID uint
	Name       string
	Price      float64
	Quantity   int
}

// Cart accumulates selected menu items before submission. It is client-local
// and disposable: it has no existence server-side until Submit, and is
// destroyed entirely by a successful submission.
type Cart struct {
	mu    sync.Mutex
	menu  MenuProvider
	lines []CartLine
}

func NewCart(menu MenuProvider) *Cart {
	return &Cart{menu: menu}
}

// Add puts one unit of the item into the draft, merging into an existing
// line if present. An unknown id is a silent no-op: callers are a closed set
// of rendered menu buttons, so there is nobody to surface an error to.
func (c *Cart) Add(menuItemID uint) {
	item, ok := c.menu.MenuItem(menuItemID)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].MenuItemID == menuItemID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, CartLine{
		MenuItemID: item.ID,
		Name:       item.Name,
		Price:      item.Price,
		Quantity:   1,
	})
}

// Remove takes one unit out of the draft. A line that would reach zero is
// removed entirely; a line is never kept at quantity zero.
func (c *Cart) Remove(menuItemID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].MenuItemID != menuItemID {
			continue
		}
		if c.lines[i].Quantity > 1 {
			c.lines[i].Quantity--
		} else {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
		return
	}
}

// Lines returns a copy of the current draft in insertion order.
func (c *Cart) Lines() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total is recomputed from the lines on every call, never cached.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, line := range c.lines {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Submit sends the draft as ids and quantities only. Once the server accepts
// the order the draft is cleared unconditionally, before the caller gets the
// result, so a failing follow-up (payment prompt, refresh) can never lead to
// the same draft being submitted twice.
func (c *Cart) Submit(ctx context.Context, api *Client) (*models.Order, error) {
	c.mu.Lock()
	if len(c.lines) == 0 {
		c.mu.Unlock()
		return nil, ErrEmptyCart
	}
	payload := make([]OrderItemPayload, len(c.lines))
	for i, line := range c.lines {
		payload[i] = OrderItemPayload{ID: line.MenuItemID, Quantity: line.Quantity}
	}
	c.mu.Unlock()

	order, err := api.CreateOrder(ctx, payload)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
	return order, nil
}
