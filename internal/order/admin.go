package order

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/shophub-dev/storefront/internal/events"
)

type StatusAPI interface {
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
}

// AdminMutator requests status transitions and patches the loaded view
// optimistically on success. Last write wins, unconfirmed: the patched
// value is what the server acknowledged, not a re-fetched record.
type AdminMutator struct {
	log  *slog.Logger
	api  StatusAPI
	view *View
	pub  events.Publisher
}

func NewAdminMutator(log *slog.Logger, api StatusAPI, view *View, pub events.Publisher) *AdminMutator {
	if pub == nil {
		pub = events.Nop{}
	}
	return &AdminMutator{log: log, api: api, view: view, pub: pub}
}

// SetStatus validates against the closed enum, issues one partial
// update and patches the in-memory order on success. On failure the
// view is left untouched, which coincides with the server state.
func (m *AdminMutator) SetStatus(ctx context.Context, orderID int64, status string) error {
	st, err := ParseStatus(status)
	if err != nil {
		return err
	}
	if err := m.api.UpdateOrderStatus(ctx, orderID, string(st)); err != nil {
		m.log.Error("status update failed", "order_id", orderID, "status", st, "err", err)
		return err
	}
	m.view.patch(orderID, string(st))

	ev := events.Event{
		Type:    events.TypeOrderStatusChanged,
		Key:     strconv.FormatInt(orderID, 10),
		Payload: events.OrderStatusChanged{OrderID: orderID, Status: string(st)},
	}
	if err := m.pub.Publish(ctx, ev); err != nil {
		m.log.Warn("status change event dropped", "order_id", orderID, "err", err)
	}
	return nil
}
