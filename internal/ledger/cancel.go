package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop/internal/orders"
)

// Actor is whoever asks for an order change.
type Actor struct {
	UserID string
	Admin  bool
}

func (a Actor) owns(o orders.Order) bool { return a.Admin || a.UserID == o.UserID }

// CancelOrder returns the items to stock and, for an order that was already
// paid, puts its total back on the balance. The refund may settle other
// pending orders right away.
func (s *Service) CancelOrder(ctx context.Context, actor Actor, orderID string) (orders.Order, error) {
	var (
		order    orders.Order
		refunded = decimal.Zero
		st       Settlement
	)
	err := s.Store.WithTx(ctx, func(tx orders.Tx) error {
		var err error
		if order, err = tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		if !actor.owns(order) {
			return orders.ErrForbidden
		}
		if !orders.CanTransition(order.Status, orders.StatusCanceled) {
			return fmt.Errorf("order is %s: %w", order.Status, orders.ErrInvalidState)
		}

		for _, it := range order.Items {
			if err := tx.AdjustStock(ctx, it.ProductID, it.Qty); err != nil {
				return fmt.Errorf("restore stock of %s: %w", it.ProductID, err)
			}
		}
		if err := tx.SetOrderStatus(ctx, order.ID, order.Status, orders.StatusCanceled); err != nil {
			return err
		}

		wasPaid := order.Status.Refundable()
		order.Status = orders.StatusCanceled
		if !wasPaid {
			return nil
		}
		refunded = order.Total()
		st, err = s.credit(ctx, tx, order.UserID, refunded)
		return err
	})
	if err != nil {
		return orders.Order{}, fmt.Errorf("cancel order %s: %w", orderID, err)
	}

	s.Log.Info("order canceled",
		"order_id", order.ID, "user_id", order.UserID, "by", actor.UserID,
		"refunded", refunded.StringFixed(2))
	s.emit(ctx, append([]outEvent{{
		eventType: orders.EventOrderCanceled,
		userID:    order.UserID,
		payload:   orders.OrderCanceledPayload{OrderID: order.ID, UserID: order.UserID, Refunded: refunded},
	}}, paidEvents(st)...)...)
	return order, nil
}

// SetStatus is the admin status change. Moving to canceled goes through
// CancelOrder; marking paid by hand leaves the balance alone.
func (s *Service) SetStatus(ctx context.Context, orderID string, to orders.Status) (orders.Order, error) {
	if !to.Valid() {
		return orders.Order{}, fmt.Errorf("status %q: %w", to, orders.ErrInvalidInput)
	}
	if to == orders.StatusCanceled {
		return s.CancelOrder(ctx, Actor{Admin: true}, orderID)
	}

	var order orders.Order
	err := s.Store.WithTx(ctx, func(tx orders.Tx) error {
		var err error
		if order, err = tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		if !orders.CanTransition(order.Status, to) {
			return fmt.Errorf("%s -> %s: %w", order.Status, to, orders.ErrInvalidState)
		}
		from := order.Status
		order.Status = to
		return tx.SetOrderStatus(ctx, order.ID, from, to)
	})
	if err != nil {
		return orders.Order{}, fmt.Errorf("set status of %s: %w", orderID, err)
	}

	s.Log.Info("order status changed", "order_id", order.ID, "status", to)
	if to == orders.StatusPaid {
		s.emit(ctx, outEvent{
			eventType: orders.EventOrderPaid,
			userID:    order.UserID,
			payload:   orders.OrderPaidPayload{OrderID: order.ID, UserID: order.UserID},
		})
	}
	return order, nil
}
