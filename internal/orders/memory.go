package orders

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps everything in process memory. A transaction works on a
// copy of the state which replaces the live state only when fn succeeds, so a
// failed unit leaves nothing behind.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

type memOrder struct {
	Order
	seq int64
}

type memState struct {
	seq      int64
	products map[string]Product
	orders   map[string]memOrder
	items    map[string][]OrderItem
	profiles map[string]Profile
	payments map[string]Payment
	methods  map[string]PaymentMethod
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		products: make(map[string]Product),
		orders:   make(map[string]memOrder),
		items:    make(map[string][]OrderItem),
		profiles: make(map[string]Profile),
		payments: make(map[string]Payment),
		methods: map[string]PaymentMethod{
			"balance": {Code: "balance", Name: "Account balance"},
			"card":    {Code: "card", Name: "Bank card"},
		},
	}}
}

func (s *memState) clone() *memState {
	cp := &memState{
		seq:      s.seq,
		products: maps.Clone(s.products),
		orders:   maps.Clone(s.orders),
		items:    make(map[string][]OrderItem, len(s.items)),
		profiles: maps.Clone(s.profiles),
		payments: maps.Clone(s.payments),
		methods:  maps.Clone(s.methods),
	}
	for k, v := range s.items {
		cp.items[k] = append([]OrderItem(nil), v...)
	}
	return cp
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(&memTx{s: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryStore) ListProducts(ctx context.Context) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Product, 0, len(m.state.products))
	for _, p := range m.state.products {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id string) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.state.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) CreateProduct(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.state.products {
		if x.SKU == p.SKU {
			return fmt.Errorf("sku %s: %w", p.SKU, ErrInvalidInput)
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.state.products[p.ID] = *p
	return nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
	}
	if upd.Active != nil {
		p.Active = *upd.Active
	}
	p.UpdatedAt = time.Now().UTC()
	m.state.products[id] = p
	return p, nil
}

// DeleteProduct exists for tests that simulate a product vanishing between
// add-to-cart and checkout.
func (m *MemoryStore) DeleteProduct(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.products, id)
}

func (m *MemoryStore) GetOrder(ctx context.Context, id string) (Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.state.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return m.state.withItems(o.Order), nil
}

func (m *MemoryStore) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var recs []memOrder
	for _, o := range m.state.orders {
		if o.UserID == userID {
			recs = append(recs, o)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })
	out := make([]Order, 0, len(recs))
	for _, o := range recs {
		out = append(out, m.state.withItems(o.Order))
	}
	return out, nil
}

func (m *MemoryStore) ListPayments(ctx context.Context, userID string) ([]Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Payment
	for _, p := range m.state.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.state.profiles[userID]
	if !ok {
		return Profile{UserID: userID, Balance: decimal.Zero}, nil
	}
	return p, nil
}

func (m *MemoryStore) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PaymentMethod, 0, len(m.state.methods))
	for _, pm := range m.state.methods {
		out = append(out, pm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *memState) withItems(o Order) Order {
	o.Items = append([]OrderItem(nil), s.items[o.ID]...)
	return o
}

// memTx runs under the store write lock, so Lock* methods are plain reads.
type memTx struct{ s *memState }

func (t *memTx) LockProduct(ctx context.Context, id string) (Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (t *memTx) AdjustStock(ctx context.Context, productID string, delta int) error {
	p, ok := t.s.products[productID]
	if !ok {
		return ErrNotFound
	}
	if p.Stock+delta < 0 {
		return ErrNotEnoughStock
	}
	p.Stock += delta
	p.UpdatedAt = time.Now().UTC()
	t.s.products[productID] = p
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	t.s.seq++
	rec := *o
	rec.Items = nil
	t.s.orders[o.ID] = memOrder{Order: rec, seq: t.s.seq}
	return nil
}

func (t *memTx) InsertOrderItem(ctx context.Context, it *OrderItem) error {
	if _, ok := t.s.orders[it.OrderID]; !ok {
		return ErrNotFound
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	t.s.items[it.OrderID] = append(t.s.items[it.OrderID], *it)
	return nil
}

func (t *memTx) LockOrder(ctx context.Context, id string) (Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return t.s.withItems(o.Order), nil
}

func (t *memTx) SetOrderStatus(ctx context.Context, id string, from, to Status) error {
	o, ok := t.s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return fmt.Errorf("order %s is %s, not %s: %w", id, o.Status, from, ErrInvalidState)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	t.s.orders[id] = o
	return nil
}

func (t *memTx) PendingOrders(ctx context.Context, userID string) ([]PendingOrder, error) {
	var recs []memOrder
	for _, o := range t.s.orders {
		if o.UserID == userID && o.Status == StatusPending {
			recs = append(recs, o)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]PendingOrder, 0, len(recs))
	for _, o := range recs {
		out = append(out, PendingOrder{
			ID:        o.ID,
			Total:     t.s.withItems(o.Order).Total(),
			CreatedAt: o.CreatedAt,
		})
	}
	return out, nil
}

func (t *memTx) LockProfile(ctx context.Context, userID string) (Profile, error) {
	p, ok := t.s.profiles[userID]
	if !ok {
		p = Profile{UserID: userID, Balance: decimal.Zero}
		t.s.profiles[userID] = p
	}
	return p, nil
}

func (t *memTx) SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	p, ok := t.s.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	p.Balance = balance
	t.s.profiles[userID] = p
	return nil
}

func (t *memTx) SetShipping(ctx context.Context, userID, phone, city, address string) error {
	p, ok := t.s.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	p.Phone, p.City, p.Address = phone, city, address
	t.s.profiles[userID] = p
	return nil
}

func (t *memTx) PaymentMethod(ctx context.Context, code string) (PaymentMethod, error) {
	pm, ok := t.s.methods[code]
	if !ok {
		return PaymentMethod{}, ErrNotFound
	}
	return pm, nil
}

func (t *memTx) InsertPayment(ctx context.Context, p *Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	t.s.payments[p.ID] = *p
	return nil
}

func (t *memTx) LockPayment(ctx context.Context, id string) (Payment, error) {
	p, ok := t.s.payments[id]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return p, nil
}

func (t *memTx) SetPaymentStatus(ctx context.Context, id string, st PaymentStatus) error {
	p, ok := t.s.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = st
	p.UpdatedAt = time.Now().UTC()
	t.s.payments[id] = p
	return nil
}
