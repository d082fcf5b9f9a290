package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ariefcatur/go-shop/internal/auth"
	"github.com/ariefcatur/go-shop/internal/ledger"
	"github.com/ariefcatur/go-shop/internal/orders"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	sessionKey
)

const (
	cookieName = "shop_session"
	sidField   = "sid"
)

func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

func sessionFrom(ctx context.Context) string {
	s, _ := ctx.Value(sessionKey).(string)
	return s
}

// trace copies the chi request id into the ledger context so it ends up in
// published events.
func trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ledger.WithTrace(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identify accepts an optional bearer token. A present but bad token is
// rejected; no token means an anonymous visitor.
func (h *Handler) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := r.Header.Get("Authorization")
		if hdr == "" {
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := strings.CutPrefix(hdr, "Bearer ")
		if !ok {
			writeError(w, r, h.Log, auth.ErrUnauthorized)
			return
		}
		id, err := h.Tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identityFrom(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthorized.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityFrom(r.Context())
		switch {
		case !ok:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthorized.Error()})
		case !id.Admin:
			writeJSON(w, http.StatusForbidden, map[string]string{"error": orders.ErrForbidden.Error()})
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// session makes sure the visitor carries a session id cookie; the cart is
// keyed by it.
func (h *Handler) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// a tampered or expired cookie yields a fresh session
		sess, _ := h.Cookies.Get(r, cookieName)
		sid, _ := sess.Values[sidField].(string)
		if sid == "" {
			sid = uuid.NewString()
			sess.Values[sidField] = sid
			if err := sess.Save(r, w); err != nil {
				writeError(w, r, h.Log, err)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sid)))
	})
}
