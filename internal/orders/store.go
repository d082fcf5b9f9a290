package orders

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the persistence boundary for the shop. Reads outside WithTx see
// committed data only; everything that mutates balance, stock or order status
// goes through a Tx.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (Product, error)

	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, userID string) ([]Order, error)
	ListPayments(ctx context.Context, userID string) ([]Payment, error)
	GetProfile(ctx context.Context, userID string) (Profile, error)
	PaymentMethods(ctx context.Context) ([]PaymentMethod, error)
}

// Tx is one all-or-nothing unit of work. Lock* methods take row locks that
// are held until the unit commits or rolls back.
type Tx interface {
	LockProduct(ctx context.Context, id string) (Product, error)
	// AdjustStock adds delta to the product stock; a result below zero is
	// rejected with ErrNotEnoughStock.
	AdjustStock(ctx context.Context, productID string, delta int) error

	InsertOrder(ctx context.Context, o *Order) error
	InsertOrderItem(ctx context.Context, it *OrderItem) error
	LockOrder(ctx context.Context, id string) (Order, error)
	// SetOrderStatus moves the order from one status to another. When the
	// order is no longer in from, nothing changes and ErrInvalidState is
	// returned.
	SetOrderStatus(ctx context.Context, id string, from, to Status) error
	// PendingOrders returns the user's pending orders oldest first.
	PendingOrders(ctx context.Context, userID string) ([]PendingOrder, error)

	// LockProfile creates an empty profile on first use.
	LockProfile(ctx context.Context, userID string) (Profile, error)
	SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error
	SetShipping(ctx context.Context, userID, phone, city, address string) error

	PaymentMethod(ctx context.Context, code string) (PaymentMethod, error)
	InsertPayment(ctx context.Context, p *Payment) error
	LockPayment(ctx context.Context, id string) (Payment, error)
	SetPaymentStatus(ctx context.Context, id string, s PaymentStatus) error
}

// ProductUpdate carries the optional fields of an admin product change.
type ProductUpdate struct {
	Price  *decimal.Decimal
	Stock  *int
	Active *bool
}
