package web

import (
	"net/http"

	"github.com/shophub-dev/storefront/internal/backend"
	"github.com/shophub-dev/storefront/internal/checkout"
	"github.com/shophub-dev/storefront/internal/order"
)

type orderView struct {
	backend.Order
	Badge order.Badge `json:"badge"`
}

func orderViews(orders []backend.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderView{Order: o, Badge: order.BadgeFor(o.Status)})
	}
	return out
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	view := order.NewView(s.client)
	if err := view.Load(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orderViews(view.Orders()))
}

func (s *Server) listAllOrders(w http.ResponseWriter, r *http.Request) {
	view := order.NewAdminView(s.client)
	if err := view.Load(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orderViews(view.Orders()))
}

type statusReq struct {
	Status string `json:"status"`
}

// updateOrderStatus loads the admin view, requests the transition and
// returns the optimistically patched list, matching the page behavior
// of updating the row in place without a re-fetch.
func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	orderID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req statusReq
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := order.ParseStatus(req.Status); err != nil {
		s.writeError(w, &checkout.ValidationError{Message: err.Error()})
		return
	}

	view := order.NewAdminView(s.client)
	if err := view.Load(ctx); err != nil {
		s.writeError(w, err)
		return
	}
	mutator := order.NewAdminMutator(s.log, s.client, view, s.pub)
	if err := mutator.SetStatus(ctx, orderID, req.Status); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orderViews(view.Orders()))
}
