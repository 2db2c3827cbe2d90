package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity bounds a single cart line. Adds and updates beyond it are
// clamped rather than rejected.
const MaxLineQuantity = 99

// CartLine is one product in the cart with its display fields copied from
// the catalog at the time it was added.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is price × quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the per-session cart container. Lines keep insertion order and are
// unique by product ID; every line has quantity ≥ 1.
type Cart struct {
	SessionID  string     `json:"session_id"`
	Lines      []CartLine `json:"lines"`
	DrawerOpen bool       `json:"drawer_open"`
	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewCart returns an empty cart for sessionID.
func NewCart(sessionID string, now time.Time) *Cart {
	return &Cart{SessionID: sessionID, Lines: []CartLine{}, CreatedAt: now, UpdatedAt: now}
}

// FindLineIndex returns the index of productID's line, or -1.
func (c *Cart) FindLineIndex(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add puts one unit of p in the cart, incrementing an existing line.
func (c *Cart) Add(p *Product) {
	if i := c.FindLineIndex(p.ID); i >= 0 {
		c.Lines[i].Quantity = min(c.Lines[i].Quantity+1, MaxLineQuantity)
		return
	}
	c.Lines = append(c.Lines, CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Quantity:  1,
	})
}

// UpdateQuantity sets the quantity of productID's line. A quantity of zero or
// less removes the line. It reports whether the cart changed; an unknown
// product is a no-op.
func (c *Cart) UpdateQuantity(productID string, quantity int) bool {
	i := c.FindLineIndex(productID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.removeAt(i)
		return true
	}
	quantity = min(quantity, MaxLineQuantity)
	if c.Lines[i].Quantity == quantity {
		return false
	}
	c.Lines[i].Quantity = quantity
	return true
}

// Remove deletes productID's line and reports whether it was present.
func (c *Cart) Remove(productID string) bool {
	i := c.FindLineIndex(productID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) removeAt(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

// RemoveOrdered takes the ordered quantities out of the cart. Units added
// after the order was built stay. It reports whether the cart changed.
func (c *Cart) RemoveOrdered(items []OrderItem) bool {
	changed := false
	for _, it := range items {
		i := c.FindLineIndex(it.ProductID)
		if i < 0 {
			continue
		}
		changed = true
		if c.Lines[i].Quantity <= it.Quantity {
			c.removeAt(i)
			continue
		}
		c.Lines[i].Quantity -= it.Quantity
	}
	return changed
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Lines = []CartLine{}
}

func (c *Cart) OpenDrawer()  { c.DrawerOpen = true }
func (c *Cart) CloseDrawer() { c.DrawerOpen = false }

// Total is Σ price × quantity, computed on every call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Count is Σ quantity.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
