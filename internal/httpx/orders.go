package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop/internal/ledger"
	"github.com/ariefcatur/go-shop/internal/orders"
)

type orderView struct {
	orders.Order
	Total decimal.Decimal `json:"total"`
}

func viewOrder(o orders.Order) orderView { return orderView{Order: o, Total: o.Total()} }

type checkoutReq struct {
	ledger.Shipping
	Method string `json:"method"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var req checkoutReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	c, err := h.openCart(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	o, err := h.Ledger.Checkout(r.Context(), ledger.CheckoutInput{
		UserID:   id.UserID,
		Email:    id.Email,
		Shipping: req.Shipping,
		Method:   req.Method,
	}, c)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOrder(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	list, err := h.Store.ListOrders(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	out := make([]orderView, 0, len(list))
	for _, o := range list {
		out = append(out, viewOrder(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	o, err := h.Store.GetOrder(r.Context(), chi.URLParam(r, "id"))
	// someone else's order is reported as missing
	if err == nil && !id.Admin && o.UserID != id.UserID {
		err = orders.ErrNotFound
	}
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrder(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	o, err := h.Ledger.CancelOrder(r.Context(), ledger.Actor{UserID: id.UserID, Admin: id.Admin}, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrder(o))
}

type setStatusReq struct {
	Status orders.Status `json:"status"`
}

func (h *Handler) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	o, err := h.Ledger.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrder(o))
}
