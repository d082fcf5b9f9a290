package httpx

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop/internal/orders"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Store.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if ps == nil {
		ps = []orders.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err == nil && !p.Active {
		err = orders.ErrNotFound
	}
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	ms, err := h.Store.PaymentMethods(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

type createProductReq struct {
	SKU    string          `json:"sku"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stock"`
	Active *bool           `json:"active"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	req.SKU, req.Name = strings.TrimSpace(req.SKU), strings.TrimSpace(req.Name)
	switch {
	case req.SKU == "" || req.Name == "":
		writeError(w, r, h.Log, fmt.Errorf("sku and name are required: %w", orders.ErrInvalidInput))
		return
	case !validPrice(req.Price) || req.Stock < 0:
		writeError(w, r, h.Log, fmt.Errorf("price must be positive, stock not negative: %w", orders.ErrInvalidInput))
		return
	}

	p := orders.Product{SKU: req.SKU, Name: req.Name, Price: req.Price, Stock: req.Stock, Active: true}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if err := h.Store.CreateProduct(r.Context(), &p); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// validPrice accepts positive amounts in whole cents.
func validPrice(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(2))
}

type patchProductReq struct {
	Price  *decimal.Decimal `json:"price"`
	Stock  *int             `json:"stock"`
	Active *bool            `json:"active"`
}

func (h *Handler) patchProduct(w http.ResponseWriter, r *http.Request) {
	var req patchProductReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if (req.Price != nil && !validPrice(*req.Price)) || (req.Stock != nil && *req.Stock < 0) {
		writeError(w, r, h.Log, fmt.Errorf("price must be positive, stock not negative: %w", orders.ErrInvalidInput))
		return
	}
	p, err := h.Store.UpdateProduct(r.Context(), chi.URLParam(r, "id"), orders.ProductUpdate(req))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
