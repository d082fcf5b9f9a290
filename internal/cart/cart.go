// Package cart keeps a visitor's desired purchases in their session.
//
// Each line remembers the unit price seen when the product was first added,
// so later catalog price changes do not move the cart total. The cart itself
// knows nothing about stock; callers check availability before Add.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

var ErrInvalidQty = errors.New("quantity must be positive")

// SessionHandle is the per-visitor storage backing one cart. Load returns
// nil data when nothing has been saved yet.
type SessionHandle interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}

type Entry struct {
	ProductID string          `json:"product_id"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

func (e Entry) Total() decimal.Decimal {
	return e.Price.Mul(decimal.NewFromInt(int64(e.Qty)))
}

// stored form: product id -> line
type line struct {
	Qty   int             `json:"qty"`
	Price decimal.Decimal `json:"price"`
}

type Cart struct {
	session SessionHandle
	lines   map[string]line
}

func Open(ctx context.Context, s SessionHandle) (*Cart, error) {
	c := &Cart{session: s, lines: make(map[string]line)}
	data, err := s.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.lines); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	for id, l := range c.lines {
		if l.Qty <= 0 {
			delete(c.lines, id)
		}
	}
	return c, nil
}

// Add inserts the product at price when absent, otherwise bumps the quantity
// and keeps the original price snapshot.
func (c *Cart) Add(ctx context.Context, productID string, price decimal.Decimal, qty int) error {
	if qty <= 0 {
		return ErrInvalidQty
	}
	l, ok := c.lines[productID]
	if !ok {
		l = line{Price: price}
	}
	if l.Qty > math.MaxInt-qty {
		return ErrInvalidQty
	}
	l.Qty += qty
	c.lines[productID] = l
	return c.save(ctx)
}

// Decrement lowers the quantity by one and drops the line at zero.
func (c *Cart) Decrement(ctx context.Context, productID string) error {
	l, ok := c.lines[productID]
	if !ok {
		return nil
	}
	if l.Qty <= 1 {
		delete(c.lines, productID)
	} else {
		l.Qty--
		c.lines[productID] = l
	}
	return c.save(ctx)
}

func (c *Cart) Remove(ctx context.Context, productID string) error {
	if _, ok := c.lines[productID]; !ok {
		return nil
	}
	delete(c.lines, productID)
	return c.save(ctx)
}

func (c *Cart) Clear(ctx context.Context) error {
	c.lines = make(map[string]line)
	return c.session.Delete(ctx)
}

func (c *Cart) Quantity(productID string) int {
	return c.lines[productID].Qty
}

// Len is the number of units across all lines.
func (c *Cart) Len() int {
	n := 0
	for _, l := range c.lines {
		n += l.Qty
	}
	return n
}

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c.Items() {
		total = total.Add(e.Total())
	}
	return total
}

// Items returns the lines ordered by product id.
func (c *Cart) Items() []Entry {
	out := make([]Entry, 0, len(c.lines))
	for id, l := range c.lines {
		out = append(out, Entry{ProductID: id, Qty: l.Qty, Price: l.Price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (c *Cart) save(ctx context.Context) error {
	if len(c.lines) == 0 {
		return c.session.Delete(ctx)
	}
	b, err := json.Marshal(c.lines)
	if err != nil {
		return err
	}
	if err := c.session.Save(ctx, b); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
