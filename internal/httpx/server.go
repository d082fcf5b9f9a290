package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-shop/internal/auth"
	"github.com/ariefcatur/go-shop/internal/ledger"
	"github.com/ariefcatur/go-shop/internal/orders"
	"github.com/ariefcatur/go-shop/internal/redisx"
)

// Handler serves the shop REST API.
type Handler struct {
	Ledger   *ledger.Service
	Store    orders.Store
	Sessions *redisx.Sessions
	Redis    redis.Cmdable // payment idempotency
	Tokens   *auth.Tokens
	Cookies  *sessions.CookieStore
	Log      *slog.Logger
}

func NewCookieStore(secret string, ttl time.Duration) *sessions.CookieStore {
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return cs
}

func NewRouter(h *Handler) *chi.Mux {
	if h.Log == nil {
		h.Log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(trace, h.identify)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/payment-methods", h.listPaymentMethods)

	r.Group(func(r chi.Router) {
		r.Use(h.session)
		r.Get("/cart", h.getCart)
		r.Post("/cart/items", h.addCartItem)
		r.Post("/cart/items/{id}/decrement", h.decrementCartItem)
		r.Delete("/cart/items/{id}", h.removeCartItem)
		r.Delete("/cart", h.clearCart)

		r.With(requireUser).Post("/checkout", h.checkout)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/cancel", h.cancelOrder)

		r.Get("/payments", h.listPayments)
		r.Post("/payments", h.createPayment)

		r.Get("/profile", h.getProfile)
		r.Put("/profile", h.putProfile)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/payments/{id}/complete", h.completePayment)
		r.Post("/admin/products", h.createProduct)
		r.Patch("/admin/products/{id}", h.patchProduct)
		r.Patch("/admin/orders/{id}/status", h.setOrderStatus)
	})
	return r
}
