package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Order struct {
	ID         string      `json:"id"`
	ExternalID string      `json:"external_id"`
	UserID     string      `json:"user_id"`
	Status     Status      `json:"status"`
	Phone      string      `json:"phone"`
	City       string      `json:"city"`
	Address    string      `json:"address"`
	Method     string      `json:"method"`
	Items      []OrderItem `json:"items,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Total is derived from the item snapshots and is never stored.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Total())
	}
	return total
}

type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

func (it OrderItem) Total() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Qty)))
}

// PendingOrder is an order waiting for settlement together with its total.
type PendingOrder struct {
	ID        string
	Total     decimal.Decimal
	CreatedAt time.Time
}

type Profile struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
	Phone   string          `json:"phone"`
	City    string          `json:"city"`
	Address string          `json:"address"`
}

type Payment struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Method        string          `json:"method"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        PaymentStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type PaymentMethod struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
