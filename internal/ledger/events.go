package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop/internal/orders"
)

// Event is something that may let pending orders be paid.
type Event interface{ userID() string }

// BalanceChanged is raised after a user's stored balance went up.
type BalanceChanged struct {
	UserID  string
	Balance decimal.Decimal
}

// OrderCreated is raised inside checkout once all items are written.
type OrderCreated struct {
	Order orders.Order
}

func (e BalanceChanged) userID() string { return e.UserID }
func (e OrderCreated) userID() string   { return e.Order.UserID }
