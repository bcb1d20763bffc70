// Package web renders each storefront page as a JSON endpoint: the
// page components of the original client become handlers over the same
// cart, checkout, order and admin services.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/shophub-dev/storefront/internal/admin"
	"github.com/shophub-dev/storefront/internal/auth"
	"github.com/shophub-dev/storefront/internal/backend"
	"github.com/shophub-dev/storefront/internal/cart"
	"github.com/shophub-dev/storefront/internal/catalog"
	"github.com/shophub-dev/storefront/internal/checkout"
	"github.com/shophub-dev/storefront/internal/events"
	"github.com/shophub-dev/storefront/internal/mail"
)

type Server struct {
	log      *slog.Logger
	client   *backend.Client
	catalog  *catalog.Service
	admin    *admin.Service
	sessions *Sessions
	guard    checkout.SubmitGuard
	pub      events.Publisher
	mailer   mail.Sender
	tracer   trace.Tracer
}

func NewServer(log *slog.Logger, client *backend.Client, catalogSvc *catalog.Service, adminSvc *admin.Service, sessions *Sessions, guard checkout.SubmitGuard, pub events.Publisher, mailer mail.Sender) *Server {
	if pub == nil {
		pub = events.Nop{}
	}
	if mailer == nil {
		mailer = mail.LogSender{Log: log}
	}
	return &Server{
		log:      log,
		client:   client,
		catalog:  catalogSvc,
		admin:    adminSvc,
		sessions: sessions,
		guard:    guard,
		pub:      pub,
		mailer:   mailer,
		tracer:   otel.Tracer("storefront-http"),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.sessions.Middleware)

	r.Post("/signup", s.signup)
	r.Post("/verify-email", s.verifyEmail)
	r.Post("/verify-email/resend", s.resendVerification)
	r.Post("/login", s.login)
	r.Post("/logout", s.logout)

	r.Get("/products", s.listProducts)
	r.Get("/products/{id}", s.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/cart", s.viewCart)
		r.Post("/cart/items", s.addCartItem)
		r.Put("/cart/items/{productID}", s.updateCartItem)
		r.Delete("/cart/items/{productID}", s.removeCartItem)
		r.Delete("/cart", s.clearCart)
		r.Post("/checkout", s.submitCheckout)
		r.Get("/orders", s.listOrders)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/products", s.createProduct)
		r.Put("/products/{id}", s.updateProduct)
		r.Delete("/products/{id}", s.deleteProduct)
		r.Get("/admin/orders", s.listAllOrders)
		r.Patch("/admin/orders/{id}/status", s.updateOrderStatus)
		r.Get("/admin/users", s.listUsers)
		r.Get("/admin/dashboard", s.dashboard)
	})

	return r
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := stateFrom(r.Context())
		if st == nil || !st.Auth.IsAuthenticated(r.Context()) {
			s.writeJSON(w, http.StatusUnauthorized, errorBody{Message: "please log in"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := stateFrom(r.Context())
		if st == nil || !st.Auth.IsAuthenticated(r.Context()) {
			s.writeJSON(w, http.StatusUnauthorized, errorBody{Message: "please log in"})
			return
		}
		if !st.Auth.IsAdmin(r.Context()) {
			s.writeJSON(w, http.StatusForbidden, errorBody{Message: "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionCart hydrates the session's cart store. Corrupt or missing
// payloads come back as an empty cart, not an error.
func (s *Server) sessionCart(r *http.Request) (*cart.Store, error) {
	st := stateFrom(r.Context())
	cs := cart.NewStore(st.KV)
	if err := cs.Load(r.Context()); err != nil {
		return nil, err
	}
	return cs, nil
}

type errorBody struct {
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy to HTTP: validation errors come
// back 400 with the inline message, expired sessions 401, backend
// business errors pass through verbatim, and transport failures get a
// generic retryable message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var vErr *checkout.ValidationError
	if errors.As(err, &vErr) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Message: vErr.Message})
		return
	}
	if errors.Is(err, cart.ErrQuantityNotPositive) || errors.Is(err, cart.ErrExceedsStock) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Message: err.Error()})
		return
	}
	if errors.Is(err, auth.ErrEmailNotVerified) {
		s.writeJSON(w, http.StatusForbidden, errorBody{Message: "please verify your email first"})
		return
	}
	if errors.Is(err, auth.ErrCodeMismatch) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid verification code"})
		return
	}
	if errors.Is(err, auth.ErrVerificationNotFound) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Message: "no pending verification for this email"})
		return
	}
	if errors.Is(err, backend.ErrUnauthorized) {
		s.writeJSON(w, http.StatusUnauthorized, errorBody{Message: "session expired, please log in again"})
		return
	}
	if errors.Is(err, checkout.ErrSubmissionInFlight) || errors.Is(err, checkout.ErrDuplicateSubmission) {
		s.writeJSON(w, http.StatusConflict, errorBody{Message: "this order is already being placed"})
		return
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		s.writeJSON(w, apiErr.Status, errorBody{Message: apiErr.Message})
		return
	}
	s.log.Error("request failed", "err", err)
	s.writeJSON(w, http.StatusBadGateway, errorBody{Message: "request failed, please try again"})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &checkout.ValidationError{Message: "invalid request body"}
	}
	return nil
}
