package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop/internal/auth"
	"github.com/ariefcatur/go-shop/internal/cart"
	"github.com/ariefcatur/go-shop/internal/ledger"
	"github.com/ariefcatur/go-shop/internal/orders"
	"github.com/ariefcatur/go-shop/internal/redisx"
)

type testAPI struct {
	router http.Handler
	store  *orders.MemoryStore
	tokens *auth.Tokens
	redis  *miniredis.Miniredis
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := orders.NewMemoryStore()
	tokens := auth.NewTokens("test-secret", time.Hour)
	h := &Handler{
		Ledger:   ledger.NewService(store, nil, "shop-api-test", log),
		Store:    store,
		Sessions: &redisx.Sessions{RDB: rdb, TTL: time.Hour},
		Redis:    rdb,
		Tokens:   tokens,
		Cookies:  NewCookieStore("0123456789abcdef0123456789abcdef", time.Hour),
		Log:      log,
	}
	return &testAPI{router: NewRouter(h), store: store, tokens: tokens, redis: mr}
}

// client keeps cookies between calls like a browser would.
type client struct {
	api     *testAPI
	token   string
	cookies []*http.Cookie
}

func (a *testAPI) anonymous() *client { return &client{api: a} }

func (a *testAPI) as(t *testing.T, userID string, admin bool) *client {
	t.Helper()
	tok, err := a.tokens.Issue(auth.Identity{UserID: userID, Email: userID + "@example.com", Admin: admin})
	require.NoError(t, err)
	return &client{api: a, token: tok}
}

func (c *client) do(t *testing.T, method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.api.router.ServeHTTP(rec, req)
	if got := rec.Result().Cookies(); len(got) > 0 {
		c.cookies = got
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type productResp struct {
	ID    string          `json:"id"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

func (c *client) createProduct(t *testing.T, sku, price string, stock int) productResp {
	t.Helper()
	rec := c.do(t, http.MethodPost, "/admin/products", map[string]any{
		"sku": sku, "name": sku, "price": price, "stock": stock,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[productResp](t, rec)
}

var shipping = map[string]string{
	"phone": "79991234567", "city": "Kazan", "address": "Baumana 1", "method": "balance",
}

type orderResp struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Total  decimal.Decimal `json:"total"`
	Items  []struct {
		ProductID string `json:"product_id"`
		Qty       int    `json:"qty"`
	} `json:"items"`
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.anonymous().do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestShoppingFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := api.as(t, "root", true)
	bread := admin.createProduct(t, "bread", "1.80", 10)

	// anonymous visitor fills a cart
	buyer := api.anonymous()
	rec := buyer.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": bread.ID, "qty": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, buyer.cookies)

	rec = buyer.do(t, http.MethodPost, "/cart/items/"+bread.ID+"/decrement", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[cartView](t, rec)
	assert.Equal(t, 2, view.Count)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("3.60")), view.Total.String())

	// checkout needs a login; the session cookie carries the cart over
	rec = buyer.do(t, http.MethodPost, "/checkout", shipping)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := api.tokens.Issue(auth.Identity{UserID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)
	buyer.token = tok

	rec = buyer.do(t, http.MethodPost, "/checkout", shipping)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	o := decode[orderResp](t, rec)
	assert.Equal(t, "pending", o.Status)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("3.60")))

	rec = buyer.do(t, http.MethodGet, "/cart", nil)
	assert.Equal(t, 0, decode[cartView](t, rec).Count)

	// a top-up settles the pending order
	rec = buyer.do(t, http.MethodPost, "/payments", map[string]any{"amount": "50", "method": "card"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pay := decode[ledger.PaymentResult](t, rec)
	assert.Equal(t, []string{o.ID}, pay.PaidOrders)
	assert.True(t, pay.Balance.Equal(decimal.RequireFromString("46.40")), pay.Balance.String())

	rec = buyer.do(t, http.MethodGet, "/orders/"+o.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", decode[orderResp](t, rec).Status)

	rec = buyer.do(t, http.MethodGet, "/products/"+bread.ID, nil)
	assert.Equal(t, 8, decode[productResp](t, rec).Stock)

	// cancel refunds and restocks
	rec = buyer.do(t, http.MethodPost, "/orders/"+o.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = buyer.do(t, http.MethodGet, "/profile", nil)
	prof := decode[orders.Profile](t, rec)
	assert.True(t, prof.Balance.Equal(decimal.NewFromInt(50)), prof.Balance.String())

	rec = buyer.do(t, http.MethodPost, "/orders/"+o.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthBoundaries(t *testing.T) {
	api := newTestAPI(t)
	anon := api.anonymous()
	user := api.as(t, "u1", false)

	assert.Equal(t, http.StatusUnauthorized, anon.do(t, http.MethodGet, "/orders", nil).Code)

	bad := &client{api: api, token: "not-a-jwt"}
	assert.Equal(t, http.StatusUnauthorized, bad.do(t, http.MethodGet, "/products", nil).Code)

	rec := user.do(t, http.MethodPost, "/admin/products", map[string]any{"sku": "x", "name": "x", "price": "1", "stock": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = anon.do(t, http.MethodPatch, "/admin/orders/o1/status", map[string]string{"status": "paid"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrdersArePrivate(t *testing.T) {
	api := newTestAPI(t)
	p := api.as(t, "root", true).createProduct(t, "milk", "1", 5)

	owner := api.as(t, "u1", false)
	owner.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": p.ID, "qty": 1})
	rec := owner.do(t, http.MethodPost, "/checkout", shipping)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	o := decode[orderResp](t, rec)

	other := api.as(t, "u2", false)
	assert.Equal(t, http.StatusNotFound, other.do(t, http.MethodGet, "/orders/"+o.ID, nil).Code)
	assert.Equal(t, http.StatusForbidden, other.do(t, http.MethodPost, "/orders/"+o.ID+"/cancel", nil).Code)

	list := decode[[]orderResp](t, other.do(t, http.MethodGet, "/orders", nil))
	assert.Empty(t, list)
}

func TestCartAndCheckoutErrors(t *testing.T) {
	api := newTestAPI(t)
	p := api.as(t, "root", true).createProduct(t, "milk", "1", 2)
	user := api.as(t, "u1", false)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"empty cart", http.MethodPost, "/checkout", shipping, http.StatusBadRequest},
		{"unknown product", http.MethodPost, "/cart/items", map[string]any{"product_id": "nope", "qty": 1}, http.StatusNotFound},
		{"too many", http.MethodPost, "/cart/items", map[string]any{"product_id": p.ID, "qty": 3}, http.StatusConflict},
		{"huge qty", http.MethodPost, "/cart/items", map[string]any{"product_id": p.ID, "qty": math.MaxInt}, http.StatusConflict},
		{"negative qty", http.MethodPost, "/cart/items", map[string]any{"product_id": p.ID, "qty": -1}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/cart/items", map[string]any{"product": p.ID}, http.StatusBadRequest},
		{"bad phone", http.MethodPut, "/profile", map[string]string{"phone": "123", "city": "a", "address": "b"}, http.StatusBadRequest},
		{"bad payment", http.MethodPost, "/payments", map[string]any{"amount": "-1", "method": "card"}, http.StatusBadRequest},
		{"sub-cent payment", http.MethodPost, "/payments", map[string]any{"amount": "0.001", "method": "card"}, http.StatusBadRequest},
		{"missing order", http.MethodGet, "/orders/missing", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := user.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestProductPriceInWholeCents(t *testing.T) {
	api := newTestAPI(t)
	admin := api.as(t, "root", true)

	rec := admin.do(t, http.MethodPost, "/admin/products", map[string]any{"sku": "x", "name": "x", "price": "1.005", "stock": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	p := admin.createProduct(t, "y", "1.50", 1)
	rec = admin.do(t, http.MethodPatch, "/admin/products/"+p.ID, map[string]any{"price": "0.999"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePayment_IdempotencyKey(t *testing.T) {
	api := newTestAPI(t)
	user := api.as(t, "u1", false)
	body := map[string]any{"amount": "10", "method": "card"}

	first := user.do(t, http.MethodPost, "/payments", body, headerIdemKey, "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := user.do(t, http.MethodPost, "/payments", body, headerIdemKey, "k-1")
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())

	a := decode[ledger.PaymentResult](t, first)
	b := decode[ledger.PaymentResult](t, second)
	assert.Equal(t, a.Payment.ID, b.Payment.ID)
	assert.Equal(t, "true", second.Header().Get(headerIdemReplay))

	list := decode[[]orders.Payment](t, user.do(t, http.MethodGet, "/payments", nil))
	assert.Len(t, list, 1)

	ttl := api.redis.TTL(fmt.Sprintf(redisx.KeyIdemPayment, "u1", "k-1"))
	assert.Equal(t, redisx.TTLIdempotency, ttl)

	// a key in flight is a conflict, not a second payment
	require.NoError(t, api.redis.Set(fmt.Sprintf(redisx.KeyIdemPayment, "u1", "k-2"), "1"))
	rec := user.do(t, http.MethodPost, "/payments", body, headerIdemKey, "k-2")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCompletePaymentAndAdminStatus(t *testing.T) {
	api := newTestAPI(t)
	admin := api.as(t, "root", true)
	user := api.as(t, "u1", false)
	p := admin.createProduct(t, "tea", "4", 5)

	user.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": p.ID, "qty": 1})
	o := decode[orderResp](t, user.do(t, http.MethodPost, "/checkout", shipping))

	rec := user.do(t, http.MethodPost, "/payments", map[string]any{"amount": "5", "method": "card", "status": "pending"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pending := decode[ledger.PaymentResult](t, rec)

	assert.Equal(t, http.StatusForbidden, user.do(t, http.MethodPost, "/payments/"+pending.Payment.ID+"/complete", nil).Code)
	rec = admin.do(t, http.MethodPost, "/payments/"+pending.Payment.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{o.ID}, decode[ledger.PaymentResult](t, rec).PaidOrders)
	assert.Equal(t, http.StatusConflict, admin.do(t, http.MethodPost, "/payments/"+pending.Payment.ID+"/complete", nil).Code)

	path := "/admin/orders/" + o.ID + "/status"
	assert.Equal(t, http.StatusConflict, admin.do(t, http.MethodPatch, path, map[string]string{"status": "delivered"}).Code)
	assert.Equal(t, http.StatusBadRequest, admin.do(t, http.MethodPatch, path, map[string]string{"status": "lost"}).Code)
	rec = admin.do(t, http.MethodPatch, path, map[string]string{"status": "shipped"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "shipped", decode[orderResp](t, rec).Status)

	rec = admin.do(t, http.MethodPatch, "/admin/products/"+p.ID, map[string]any{"stock": 42})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 42, decode[productResp](t, rec).Stock)
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{orders.ErrNotFound, http.StatusNotFound},
		{orders.ErrInvalidInput, http.StatusBadRequest},
		{orders.ErrEmptyCart, http.StatusBadRequest},
		{orders.ErrNotEnoughStock, http.StatusConflict},
		{orders.ErrProductNotFound, http.StatusNotFound},
		{orders.ErrInvalidState, http.StatusConflict},
		{orders.ErrForbidden, http.StatusForbidden},
		{cart.ErrInvalidQty, http.StatusBadRequest},
		{auth.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("order not created: %w", orders.ErrEmptyCart), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}
