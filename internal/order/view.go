// Package order is the read side of confirmed orders plus the admin
// status write path. Orders are owned by the backend; the view holds
// transient copies refreshed wholesale on each load.
package order

import (
	"context"

	"github.com/shophub-dev/storefront/internal/backend"
)

type ListAPI interface {
	Orders(ctx context.Context) ([]backend.Order, error)
	AllOrders(ctx context.Context) ([]backend.Order, error)
}

// View is a read-only projection of server-confirmed orders. Load
// replaces the previous list wholesale; there is no incremental sync
// and no merge with cart state.
type View struct {
	api    ListAPI
	admin  bool
	orders []backend.Order
}

func NewView(api ListAPI) *View {
	return &View{api: api}
}

// NewAdminView projects all orders rather than the caller's own.
func NewAdminView(api ListAPI) *View {
	return &View{api: api, admin: true}
}

func (v *View) Load(ctx context.Context) error {
	var (
		orders []backend.Order
		err    error
	)
	if v.admin {
		orders, err = v.api.AllOrders(ctx)
	} else {
		orders, err = v.api.Orders(ctx)
	}
	if err != nil {
		return err
	}
	v.orders = orders
	return nil
}

func (v *View) Orders() []backend.Order {
	cp := make([]backend.Order, len(v.orders))
	copy(cp, v.orders)
	return cp
}

func (v *View) patch(orderID int64, status string) {
	for i := range v.orders {
		if v.orders[i].ID == orderID {
			v.orders[i].Status = status
			return
		}
	}
}
