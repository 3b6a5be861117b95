// Package cart holds the mutable per-user shopping cart aggregate.
package cart

import (
	"fmt"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/catalog"
)

// StockLimitError signals that a cart mutation would exceed the product's
// currently available stock. It carries display detail so the caller can tell
// the user instead of silently truncating.
type StockLimitError struct {
	ProductName string
	Available   int
}

func (e *StockLimitError) Error() string {
	if e.Available == 0 {
		return fmt.Sprintf("%s is out of stock", e.ProductName)
	}
	return fmt.Sprintf("stock limit reached for %s (only %d available)", e.ProductName, e.Available)
}

// Line is one cart entry: the product snapshot most recently observed and the
// chosen quantity. The snapshot is refreshed on every mutation and summary,
// never trusted across requests.
type Line struct {
	Product  catalog.Product
	Quantity int
}

// cart is the per-user aggregate: insertion-ordered lines plus the manually
// applied coupon code. Auto-applied coupons are never stored here; they are
// re-derived from the subtotal on every summary.
type cart struct {
	order      []string
	lines      map[string]*Line
	couponCode string
}

func newCart() *cart {
	return &cart{lines: make(map[string]*Line)}
}

func (c *cart) get(productID string) (*Line, bool) {
	l, ok := c.lines[productID]
	return l, ok
}

func (c *cart) put(p catalog.Product, qty int) {
	if l, ok := c.lines[p.ID]; ok {
		l.Product = p
		l.Quantity = qty
		return
	}
	c.lines[p.ID] = &Line{Product: p, Quantity: qty}
	c.order = append(c.order, p.ID)
}

func (c *cart) remove(productID string) {
	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// snapshot returns the lines in display order. Line values are copies.
func (c *cart) snapshot() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		if l, ok := c.lines[id]; ok {
			out = append(out, *l)
		}
	}
	return out
}
