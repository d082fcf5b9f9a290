package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop/internal/cart"
)

type cartView struct {
	Items []cart.Entry    `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func viewOf(c *cart.Cart) cartView {
	return cartView{Items: c.Items(), Count: c.Len(), Total: c.Total()}
}

func (h *Handler) openCart(r *http.Request) (*cart.Cart, error) {
	return cart.Open(r.Context(), h.Sessions.Handle(sessionFrom(r.Context())))
}

// withCart opens the visitor's cart, applies fn and answers with the cart.
func (h *Handler) withCart(w http.ResponseWriter, r *http.Request, fn func(c *cart.Cart) error) {
	c, err := h.openCart(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if fn != nil {
		if err := fn(c); err != nil {
			writeError(w, r, h.Log, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, viewOf(c))
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, nil)
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}
	h.withCart(w, r, func(c *cart.Cart) error {
		return h.Ledger.AddToCart(r.Context(), c, req.ProductID, req.Qty)
	})
}

func (h *Handler) decrementCartItem(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(c *cart.Cart) error {
		return c.Decrement(r.Context(), chi.URLParam(r, "id"))
	})
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(c *cart.Cart) error {
		return c.Remove(r.Context(), chi.URLParam(r, "id"))
	})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(c *cart.Cart) error { return c.Clear(r.Context()) })
}
