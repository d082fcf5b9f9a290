package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop/internal/orders"
)

// Settlement is the outcome of one reconciliation run.
type Settlement struct {
	UserID  string
	Paid    []string
	Balance decimal.Decimal
}

func (s Settlement) IsPaid(orderID string) bool {
	for _, id := range s.Paid {
		if id == orderID {
			return true
		}
	}
	return false
}

// Reconciler pays down a user's pending orders from their balance, oldest
// first. It stops at the first order it cannot afford: a cheaper, newer
// order never jumps the queue.
type Reconciler struct {
	Log *slog.Logger
}

// Handle must run inside the same unit of work that produced ev.
func (r *Reconciler) Handle(ctx context.Context, tx orders.Tx, ev Event) (Settlement, error) {
	userID := ev.userID()
	if userID == "" {
		return Settlement{}, fmt.Errorf("reconcile: empty user: %w", orders.ErrInvalidInput)
	}

	prof, err := tx.LockProfile(ctx, userID)
	if err != nil {
		return Settlement{}, fmt.Errorf("reconcile: lock profile: %w", err)
	}
	pending, err := tx.PendingOrders(ctx, userID)
	if err != nil {
		return Settlement{}, fmt.Errorf("reconcile: pending orders: %w", err)
	}

	st := Settlement{UserID: userID, Balance: prof.Balance}
	for _, o := range pending {
		if st.Balance.LessThan(o.Total) {
			break
		}
		err := tx.SetOrderStatus(ctx, o.ID, orders.StatusPending, orders.StatusPaid)
		if errors.Is(err, orders.ErrInvalidState) {
			// left the queue after it was read, e.g. canceled concurrently
			r.logger().Info("skip order no longer pending", "user_id", userID, "order_id", o.ID)
			continue
		}
		if err != nil {
			return Settlement{}, fmt.Errorf("reconcile: mark %s paid: %w", o.ID, err)
		}
		st.Balance = st.Balance.Sub(o.Total)
		st.Paid = append(st.Paid, o.ID)
	}

	if len(st.Paid) > 0 {
		if err := tx.SetBalance(ctx, userID, st.Balance); err != nil {
			return Settlement{}, fmt.Errorf("reconcile: save balance: %w", err)
		}
		r.logger().Info("orders settled",
			"user_id", userID, "paid", len(st.Paid), "pending_left", len(pending)-len(st.Paid),
			"balance", st.Balance.StringFixed(2))
	}
	return st, nil
}

func (r *Reconciler) logger() *slog.Logger {
	if r == nil || r.Log == nil {
		return slog.Default()
	}
	return r.Log
}
