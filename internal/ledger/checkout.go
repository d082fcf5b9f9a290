package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-shop/internal/cart"
	"github.com/ariefcatur/go-shop/internal/orders"
)

// AddToCart puts qty units of a product into the cart at its current price,
// refusing to go past the available stock.
func (s *Service) AddToCart(ctx context.Context, c *cart.Cart, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", orders.ErrInvalidInput)
	}
	p, err := s.Store.GetProduct(ctx, productID)
	if errors.Is(err, orders.ErrNotFound) || (err == nil && !p.Active) {
		return fmt.Errorf("%s: %w", productID, orders.ErrProductNotFound)
	}
	if err != nil {
		return err
	}
	if qty > p.Stock-c.Quantity(productID) {
		return fmt.Errorf("%s: %w", p.Name, orders.ErrNotEnoughStock)
	}
	return c.Add(ctx, p.ID, p.Price, qty)
}

type CheckoutInput struct {
	UserID string
	Email  string
	Shipping
	Method string
}

// Checkout turns the cart into a pending order, takes the stock, and settles
// what the balance allows, all in one unit of work. The cart is cleared only
// after that unit commits; on failure nothing is written and the cart stays.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput, c *cart.Cart) (orders.Order, error) {
	if in.UserID == "" {
		return orders.Order{}, fmt.Errorf("order not created: %w", orders.ErrForbidden)
	}
	if c.Empty() {
		return orders.Order{}, fmt.Errorf("order not created: %w", orders.ErrEmptyCart)
	}

	prof, err := s.Store.GetProfile(ctx, in.UserID)
	if err != nil {
		return orders.Order{}, fmt.Errorf("order not created: %w", err)
	}
	ship := in.Shipping.normalize().withDefaults(prof)
	if err := ship.validate(); err != nil {
		return orders.Order{}, fmt.Errorf("order not created: %w", err)
	}

	var (
		order orders.Order
		st    Settlement
	)
	err = s.Store.WithTx(ctx, func(tx orders.Tx) error {
		if _, err := tx.PaymentMethod(ctx, in.Method); err != nil {
			if errors.Is(err, orders.ErrNotFound) {
				return fmt.Errorf("payment method %q: %w", in.Method, orders.ErrInvalidInput)
			}
			return err
		}

		order = orders.Order{
			ExternalID: externalID(in.UserID, s.clock()),
			UserID:     in.UserID,
			Status:     orders.StatusPending,
			Phone:      ship.Phone,
			City:       ship.City,
			Address:    ship.Address,
			Method:     in.Method,
		}
		if err := tx.InsertOrder(ctx, &order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		// Items are sorted by product id, which also fixes the lock order.
		for _, e := range c.Items() {
			p, err := tx.LockProduct(ctx, e.ProductID)
			if errors.Is(err, orders.ErrNotFound) || (err == nil && !p.Active) {
				return fmt.Errorf("%s: %w", e.ProductID, orders.ErrProductNotFound)
			}
			if err != nil {
				return err
			}
			if p.Stock < e.Qty {
				return fmt.Errorf("%s (have %d, want %d): %w", p.Name, p.Stock, e.Qty, orders.ErrNotEnoughStock)
			}

			it := orders.OrderItem{OrderID: order.ID, ProductID: p.ID, Qty: e.Qty, Price: e.Price}
			if err := tx.InsertOrderItem(ctx, &it); err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
			if err := tx.AdjustStock(ctx, p.ID, -e.Qty); err != nil {
				return fmt.Errorf("take stock of %s: %w", p.Name, err)
			}
			order.Items = append(order.Items, it)
		}

		settled, err := s.Reconciler.Handle(ctx, tx, OrderCreated{Order: order})
		if err != nil {
			return err
		}
		st = settled
		if st.IsPaid(order.ID) {
			order.Status = orders.StatusPaid
		}
		return nil
	})
	if err != nil {
		s.Log.Warn("checkout failed", "user_id", in.UserID, "err", err)
		return orders.Order{}, fmt.Errorf("order not created: %w", err)
	}

	if err := c.Clear(ctx); err != nil {
		s.Log.Error("clear cart after checkout", "order_id", order.ID, "err", err)
	}
	s.Log.Info("order created",
		"order_id", order.ID, "external_id", order.ExternalID, "user_id", order.UserID,
		"status", order.Status, "total", order.Total().StringFixed(2))

	s.emit(ctx, append([]outEvent{{
		eventType: orders.EventOrderCreated,
		userID:    order.UserID,
		payload: orders.OrderCreatedPayload{
			OrderID:    order.ID,
			ExternalID: order.ExternalID,
			UserID:     order.UserID,
			Email:      in.Email,
			Status:     order.Status,
			Items:      orders.ItemPrices(order.Items),
			Total:      order.Total(),
		},
	}}, paidEvents(st)...)...)

	return order, nil
}
