// Package checkout performs the one-shot transition from cart to
// submitted order: validate, build the submission payload, issue a
// single request, and clear the cart only after the server confirms.
package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/shophub-dev/storefront/internal/backend"
	"github.com/shophub-dev/storefront/internal/cart"
	"github.com/shophub-dev/storefront/internal/events"
)

var (
	// ErrSubmissionInFlight rejects a second Submit while one is still
	// pending (double-click protection).
	ErrSubmissionInFlight = errors.New("checkout: a submission is already in flight")
	// ErrDuplicateSubmission reports a lost idempotency reservation.
	ErrDuplicateSubmission = errors.New("checkout: duplicate submission")
)

type OrderAPI interface {
	CreateOrder(ctx context.Context, req backend.OrderRequest) (backend.Order, error)
}

type Submission struct {
	ShippingAddress string
	Payment         Payment

	// AttemptKey identifies one checkout attempt across retries. When
	// empty, the key is derived from the submission content, so an
	// identical resubmission repeats the same Idempotency-Key and loses
	// the guard reservation instead of placing a second order.
	AttemptKey string
}

type Orchestrator struct {
	log      *slog.Logger
	cart     *cart.Store
	api      OrderAPI
	guard    SubmitGuard
	pub      events.Publisher
	inFlight atomic.Bool
}

// New wires an orchestrator over one cart store. guard and pub may be
// nil; the in-flight flag alone still blocks same-process double
// submission.
func New(log *slog.Logger, cartStore *cart.Store, api OrderAPI, guard SubmitGuard, pub events.Publisher) *Orchestrator {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Orchestrator{log: log, cart: cartStore, api: api, guard: guard, pub: pub}
}

// Submit validates fail-fast (address, then cart, then payment fields),
// sends exactly one create-order request and clears the cart only on
// success. On any failure the cart is left untouched so the user can
// retry; nothing is retried automatically.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (backend.Order, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return backend.Order{}, ErrSubmissionInFlight
	}
	defer o.inFlight.Store(false)

	address := strings.TrimSpace(sub.ShippingAddress)
	if address == "" {
		return backend.Order{}, &ValidationError{Message: "please enter a shipping address"}
	}
	if o.cart.Len() == 0 {
		return backend.Order{}, &ValidationError{Message: "your cart is empty"}
	}
	if err := sub.Payment.validate(); err != nil {
		return backend.Order{}, err
	}

	key := sub.AttemptKey
	if key == "" {
		key = Fingerprint("", address, sub.Payment, o.cart.Items())
	}
	reserved := false
	if o.guard != nil {
		won, err := o.guard.Reserve(ctx, key)
		if err != nil {
			// The guard protects against duplicates; it must not block
			// a legitimate checkout when its backing store is down.
			o.log.Warn("submission guard unavailable", "err", err)
		} else if !won {
			return backend.Order{}, ErrDuplicateSubmission
		} else {
			reserved = true
		}
	}

	items := make([]backend.OrderItemRequest, 0, o.cart.Len())
	for _, it := range o.cart.Items() {
		items = append(items, backend.OrderItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	req := backend.OrderRequest{
		ShippingAddress: address,
		PaymentMethod:   sub.Payment.Descriptor(),
		Items:           items,
		IdempotencyKey:  key,
	}

	created, err := o.api.CreateOrder(ctx, req)
	if err != nil {
		// Free the key so the same submission can be retried. The
		// Idempotency-Key header repeats on that retry, which lets the
		// server dedup if the failed attempt actually landed.
		if reserved {
			if rerr := o.guard.Release(ctx, key); rerr != nil {
				o.log.Warn("submission guard release failed", "err", rerr)
			}
		}
		return backend.Order{}, err
	}

	// Clear happens-after confirmed success, never speculatively. A
	// failed clear is logged but does not undo a placed order.
	if err := o.cart.Clear(ctx); err != nil {
		o.log.Error("cart clear after checkout failed", "order_id", created.ID, "err", err)
	}

	ev := events.Event{
		Type: events.TypeOrderPlaced,
		Key:  strconv.FormatInt(created.ID, 10),
		Payload: events.OrderPlaced{
			OrderID:       created.ID,
			TotalAmount:   created.TotalAmount,
			Status:        created.Status,
			PaymentMethod: created.PaymentMethod,
			ItemCount:     len(items),
		},
	}
	if err := o.pub.Publish(ctx, ev); err != nil {
		o.log.Warn("order placed event dropped", "order_id", created.ID, "err", err)
	}

	o.log.Info("order placed", "order_id", created.ID, "items", len(items))
	return created, nil
}

// Fingerprint derives a deterministic idempotency key for one checkout
// attempt from the session scope, the shipping address, the payment
// descriptor and the cart lines. Equal submissions hash to equal keys.
func Fingerprint(scope, address string, p Payment, items []cart.Item) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", scope, strings.TrimSpace(address), p.Descriptor())
	for _, it := range items {
		fmt.Fprintf(h, "%d:%d;", it.ProductID, it.Quantity)
	}
	return hex.EncodeToString(h.Sum(nil))
}
