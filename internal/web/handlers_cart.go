package web

import (
	"net/http"

	"github.com/shophub-dev/storefront/internal/cart"
	"github.com/shophub-dev/storefront/internal/checkout"
)

type cartView struct {
	Items []cart.Item `json:"items"`
	Total float64     `json:"total"`
}

func viewOf(cs *cart.Store) cartView {
	items := cs.Items()
	if items == nil {
		items = []cart.Item{}
	}
	return cartView{Items: items, Total: cs.Total()}
}

func (s *Server) viewCart(w http.ResponseWriter, r *http.Request) {
	cs, err := s.sessionCart(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(cs))
}

type addItemReq struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// addCartItem looks the product up for its unit price and stock
// ceiling, then merges the line into the session cart.
func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	product, err := s.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cs, err := s.sessionCart(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := cs.Add(r.Context(), product.ID, req.Quantity, product.Price, product.StockQuantity); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(cs))
}

type updateItemReq struct {
	Quantity int `json:"quantity"`
}

func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productID")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req updateItemReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	cs, err := s.sessionCart(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := cs.UpdateQuantity(r.Context(), productID, req.Quantity); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(cs))
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productID")
	if err != nil {
		s.writeError(w, err)
		return
	}
	cs, err := s.sessionCart(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := cs.Remove(r.Context(), productID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(cs))
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	cs, err := s.sessionCart(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := cs.Clear(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(cs))
}

type checkoutReq struct {
	ShippingAddress  string `json:"shippingAddress"`
	IdempotencyKey   string `json:"idempotencyKey"`
	PaymentMethod    string `json:"paymentMethod"`
	PaymentSubMethod string `json:"paymentSubMethod"`
	WalletNumber     string `json:"walletNumber"`
	WalletPIN        string `json:"walletPin"`
	WalletOTP        string `json:"walletOtp"`
	CardNumber       string `json:"cardNumber"`
	CardExpiry       string `json:"cardExpiry"`
	CardCVV          string `json:"cardCvv"`
}

func (s *Server) submitCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "SubmitCheckout")
	defer span.End()

	var req checkoutReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	// One submission per session at a time; the latch lives on the
	// cached session state, not on this request.
	st := stateFrom(ctx)
	if !st.BeginCheckout() {
		s.writeError(w, checkout.ErrSubmissionInFlight)
		return
	}
	defer st.EndCheckout()

	cs, err := s.sessionCart(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	payment := checkout.Payment{
		Method:       checkout.Method(req.PaymentMethod),
		SubMethod:    checkout.SubMethod(req.PaymentSubMethod),
		WalletNumber: req.WalletNumber,
		WalletPIN:    req.WalletPIN,
		WalletOTP:    req.WalletOTP,
		CardNumber:   req.CardNumber,
		CardExpiry:   req.CardExpiry,
		CardCVV:      req.CardCVV,
	}
	// A client-supplied key wins; otherwise the attempt is keyed by
	// session and content, so a duplicate click repeats the same key.
	attemptKey := req.IdempotencyKey
	if attemptKey == "" {
		attemptKey = checkout.Fingerprint(st.ID, req.ShippingAddress, payment, cs.Items())
	}

	orch := checkout.New(s.log, cs, s.client, s.guard, s.pub)
	created, err := orch.Submit(ctx, checkout.Submission{
		ShippingAddress: req.ShippingAddress,
		Payment:         payment,
		AttemptKey:      attemptKey,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}
