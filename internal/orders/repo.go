package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres Store. Decimal columns rely on the shopspring codec
// being registered on every pool connection (see postgres.Connect).
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const (
	uniqueViolation = "23505"
	badTextValue    = "22P02" // e.g. a malformed uuid in a path
)

// noRows maps "no such row" and unparsable ids to ErrNotFound.
func noRows(err error) error {
	var pgErr *pgconn.PgError
	if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == badTextValue) {
		return ErrNotFound
	}
	return err
}

func (r *Repo) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const productCols = `id, sku, name, price, stock, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, noRows(err)
	}
	return p, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products WHERE active ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
}

func (r *Repo) CreateProduct(ctx context.Context, p *Product) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(sku, name, price, stock, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		p.SKU, p.Name, p.Price, p.Stock, p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("sku %s: %w", p.SKU, ErrInvalidInput)
	}
	return err
}

func (r *Repo) UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `
		UPDATE products SET
			price = COALESCE($2, price),
			stock = COALESCE($3, stock),
			active = COALESCE($4, active),
			updated_at = now()
		WHERE id=$1
		RETURNING `+productCols,
		id, upd.Price, upd.Stock, upd.Active,
	))
}

const orderCols = `id, external_id, user_id, status, phone, city, address, method, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status string
	if err := row.Scan(&o.ID, &o.ExternalID, &o.UserID, &status, &o.Phone, &o.City, &o.Address, &o.Method, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, noRows(err)
	}
	o.Status = Status(status)
	return o, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, orderID string) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, qty, price
		FROM order_items WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.Price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) GetOrder(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return Order{}, err
	}
	o.Items, err = loadItems(ctx, r.DB, o.ID)
	return o, err
}

func (r *Repo) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Items, err = loadItems(ctx, r.DB, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const paymentCols = `id, user_id, method, transaction_id, amount, status, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	var status string
	if err := row.Scan(&p.ID, &p.UserID, &p.Method, &p.TransactionID, &p.Amount, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Payment{}, noRows(err)
	}
	p.Status = PaymentStatus(status)
	return p, nil
}

func (r *Repo) ListPayments(ctx context.Context, userID string) ([]Payment, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+paymentCols+` FROM payments WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProfile(ctx context.Context, userID string) (Profile, error) {
	p := Profile{UserID: userID}
	err := r.DB.QueryRow(ctx, `SELECT balance, phone, city, address FROM profiles WHERE user_id=$1`, userID).
		Scan(&p.Balance, &p.Phone, &p.City, &p.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, nil
	}
	return p, err
}

func (r *Repo) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	rows, err := r.DB.Query(ctx, `SELECT code, name FROM payment_methods ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentMethod
	for rows.Next() {
		var pm PaymentMethod
		if err := rows.Scan(&pm.Code, &pm.Name); err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, rows.Err()
}
