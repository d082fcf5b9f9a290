package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type pgTx struct{ tx pgx.Tx }

var _ Tx = (*pgTx)(nil)

func (t *pgTx) LockProduct(ctx context.Context, id string) (Product, error) {
	return scanProduct(t.tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1 FOR UPDATE`, id))
}

func (t *pgTx) AdjustStock(ctx context.Context, productID string, delta int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id=$1 AND stock + $2 >= 0`, productID, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	// either the row is gone or the guard rejected the change
	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id=$1)`, productID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrNotEnoughStock
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO orders(external_id, user_id, status, phone, city, address, method)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		o.ExternalID, o.UserID, string(o.Status), o.Phone, o.City, o.Address, o.Method,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (t *pgTx) InsertOrderItem(ctx context.Context, it *OrderItem) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO order_items(order_id, product_id, qty, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		it.OrderID, it.ProductID, it.Qty, it.Price,
	).Scan(&it.ID)
}

func (t *pgTx) LockOrder(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Order{}, err
	}
	o.Items, err = loadItems(ctx, t.tx, o.ID)
	return o, err
}

// SetOrderStatus re-checks the status in the WHERE clause: under READ
// COMMITTED the row is re-read after a concurrent commit, so an order that was
// canceled meanwhile is left alone.
func (t *pgTx) SetOrderStatus(ctx context.Context, id string, from, to Status) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2`, id, string(from), string(to))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	var cur string
	err = t.tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&cur)
	if err != nil {
		return noRows(err)
	}
	return fmt.Errorf("order %s is %s, not %s: %w", id, cur, from, ErrInvalidState)
}

// PendingOrders relies on the caller holding the profile lock, which
// serialises every balance-changing unit of one user.
func (t *pgTx) PendingOrders(ctx context.Context, userID string) ([]PendingOrder, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT o.id, o.created_at, COALESCE(SUM(i.qty * i.price), 0)
		FROM orders o
		LEFT JOIN order_items i ON i.order_id = o.id
		WHERE o.user_id=$1 AND o.status='pending'
		GROUP BY o.id, o.created_at
		ORDER BY o.created_at, o.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingOrder
	for rows.Next() {
		var p PendingOrder
		if err := rows.Scan(&p.ID, &p.CreatedAt, &p.Total); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) LockProfile(ctx context.Context, userID string) (Profile, error) {
	if _, err := t.tx.Exec(ctx, `INSERT INTO profiles(user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return Profile{}, err
	}
	p := Profile{UserID: userID}
	err := t.tx.QueryRow(ctx, `
		SELECT balance, phone, city, address FROM profiles WHERE user_id=$1 FOR UPDATE`, userID).
		Scan(&p.Balance, &p.Phone, &p.City, &p.Address)
	return p, err
}

func (t *pgTx) SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	ct, err := t.tx.Exec(ctx, `UPDATE profiles SET balance=$2 WHERE user_id=$1`, userID, balance)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) SetShipping(ctx context.Context, userID, phone, city, address string) error {
	ct, err := t.tx.Exec(ctx, `UPDATE profiles SET phone=$2, city=$3, address=$4 WHERE user_id=$1`, userID, phone, city, address)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) PaymentMethod(ctx context.Context, code string) (PaymentMethod, error) {
	var pm PaymentMethod
	err := t.tx.QueryRow(ctx, `SELECT code, name FROM payment_methods WHERE code=$1`, code).Scan(&pm.Code, &pm.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return PaymentMethod{}, ErrNotFound
	}
	return pm, err
}

func (t *pgTx) InsertPayment(ctx context.Context, p *Payment) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO payments(user_id, method, transaction_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		p.UserID, p.Method, p.TransactionID, p.Amount, string(p.Status),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (t *pgTx) LockPayment(ctx context.Context, id string) (Payment, error) {
	return scanPayment(t.tx.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id=$1 FOR UPDATE`, id))
}

func (t *pgTx) SetPaymentStatus(ctx context.Context, id string, s PaymentStatus) error {
	ct, err := t.tx.Exec(ctx, `UPDATE payments SET status=$2, updated_at=now() WHERE id=$1`, id, string(s))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}
