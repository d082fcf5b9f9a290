package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-shop/internal/ledger"
)

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	p, err := h.Store.GetProfile(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) putProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var req ledger.Shipping
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Ledger.UpdateShipping(r.Context(), id.UserID, req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
