package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop/internal/ledger"
	"github.com/ariefcatur/go-shop/internal/orders"
	"github.com/ariefcatur/go-shop/internal/redisx"
)

const (
	headerIdemKey    = "Idempotency-Key"
	headerIdemReplay = "Idempotent-Replayed"
)

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	ps, err := h.Store.ListPayments(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if ps == nil {
		ps = []orders.Payment{}
	}
	writeJSON(w, http.StatusOK, ps)
}

type createPaymentReq struct {
	Amount decimal.Decimal      `json:"amount"`
	Method string               `json:"method"`
	Status orders.PaymentStatus `json:"status"`
}

// createPayment records a payment. With an Idempotency-Key header the first
// result is kept in Redis and replayed for repeats of the same key.
func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var req createPaymentReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	in := ledger.PaymentInput{UserID: id.UserID, Method: req.Method, Amount: req.Amount, Status: req.Status}

	idem := strings.TrimSpace(r.Header.Get(headerIdemKey))
	if idem == "" || h.Redis == nil {
		res, err := h.Ledger.RecordPayment(r.Context(), in)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
		return
	}

	ctx := r.Context()
	key := fmt.Sprintf(redisx.KeyIdemPayment, id.UserID, idem)
	won, err := redisx.Claim(ctx, h.Redis, key, redisx.TTLIdempotency)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if !won {
		h.replayPayment(w, r, key)
		return
	}

	res, err := h.Ledger.RecordPayment(ctx, in)
	if err != nil {
		// let the client retry the same key after a rejected attempt
		_ = h.Redis.Del(ctx, key).Err()
		writeError(w, r, h.Log, err)
		return
	}
	b, err := json.Marshal(res)
	if err == nil {
		err = h.Redis.Set(ctx, key, b, redisx.TTLIdempotency).Err()
	}
	if err != nil {
		h.Log.Warn("store idempotent payment", "key", key, "err", err)
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) replayPayment(w http.ResponseWriter, r *http.Request, key string) {
	b, err := h.Redis.Get(r.Context(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		err = fmt.Errorf("idempotency key expired, retry: %w", orders.ErrInvalidState)
	}
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var res ledger.PaymentResult
	if json.Unmarshal(b, &res) != nil {
		// claimed by a request that has not finished yet
		writeError(w, r, h.Log, fmt.Errorf("payment with this key is in progress: %w", orders.ErrInvalidState))
		return
	}
	w.Header().Set(headerIdemReplay, "true")
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) completePayment(w http.ResponseWriter, r *http.Request) {
	res, err := h.Ledger.CompletePayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
