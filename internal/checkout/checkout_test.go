package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shophub-dev/storefront/internal/backend"
	"github.com/shophub-dev/storefront/internal/cart"
	"github.com/shophub-dev/storefront/internal/kv"
	"github.com/shophub-dev/storefront/pkg/logging"
)

type fakeOrderAPI struct {
	calls   int
	lastReq backend.OrderRequest
	resp    backend.Order
	err     error

	// onCreate lets a test re-enter the orchestrator mid-request.
	onCreate func()
}

func (f *fakeOrderAPI) CreateOrder(_ context.Context, req backend.OrderRequest) (backend.Order, error) {
	f.calls++
	f.lastReq = req
	if f.onCreate != nil {
		f.onCreate()
	}
	return f.resp, f.err
}

type fakeGuard struct {
	won      bool
	err      error
	released int
}

func (g *fakeGuard) Reserve(context.Context, string) (bool, error) { return g.won, g.err }
func (g *fakeGuard) Release(context.Context, string) error         { g.released++; return nil }

func loadedCart(t *testing.T, items ...cart.Item) *cart.Store {
	t.Helper()
	ctx := context.Background()
	cs := cart.NewStore(kv.NewMemory())
	require.NoError(t, cs.Load(ctx))
	for _, it := range items {
		require.NoError(t, cs.Add(ctx, it.ProductID, it.Quantity, it.UnitPrice, -1))
	}
	return cs
}

func cashSubmission(address string) Submission {
	return Submission{
		ShippingAddress: address,
		Payment:         Payment{Method: MethodCashOnDelivery},
	}
}

func TestSubmitRejectsBlankAddressBeforeNetwork(t *testing.T) {
	api := &fakeOrderAPI{}
	cs := loadedCart(t, cart.Item{ProductID: 7, Quantity: 2, UnitPrice: 25.0})
	orch := New(logging.New("error"), cs, api, nil, nil)

	_, err := orch.Submit(context.Background(), cashSubmission("   "))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Zero(t, api.calls)
	assert.Equal(t, 1, cs.Len())
}

func TestSubmitRejectsEmptyCartBeforeNetwork(t *testing.T) {
	api := &fakeOrderAPI{}
	orch := New(logging.New("error"), loadedCart(t), api, nil, nil)

	_, err := orch.Submit(context.Background(), cashSubmission("221B Baker St"))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "your cart is empty", vErr.Message)
	assert.Zero(t, api.calls)
}

func TestSubmitValidatesOnlinePaymentFields(t *testing.T) {
	cases := []struct {
		name    string
		payment Payment
		want    string
	}{
		{
			name:    "wallet number missing",
			payment: Payment{Method: MethodOnline, SubMethod: SubMethodWallet, WalletPIN: "1234", WalletOTP: "9"},
			want:    "please enter your bKash/Nagad number",
		},
		{
			name:    "wallet pin missing",
			payment: Payment{Method: MethodOnline, SubMethod: SubMethodWallet, WalletNumber: "01700000000", WalletOTP: "9"},
			want:    "please enter your bKash/Nagad PIN",
		},
		{
			name:    "wallet otp missing",
			payment: Payment{Method: MethodOnline, SubMethod: SubMethodWallet, WalletNumber: "01700000000", WalletPIN: "1234"},
			want:    "please enter the one-time code",
		},
		{
			name:    "card details incomplete",
			payment: Payment{Method: MethodOnline, SubMethod: SubMethodCard, CardNumber: "4111111111111111"},
			want:    "please enter complete card details",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeOrderAPI{}
			cs := loadedCart(t, cart.Item{ProductID: 1, Quantity: 1, UnitPrice: 5.0})
			orch := New(logging.New("error"), cs, api, nil, nil)

			_, err := orch.Submit(context.Background(), Submission{ShippingAddress: "somewhere", Payment: tc.payment})
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.want, vErr.Message)
			assert.Zero(t, api.calls)
		})
	}
}

func TestPaymentDescriptors(t *testing.T) {
	assert.Equal(t, "cash on delivery", Payment{Method: MethodCashOnDelivery}.Descriptor())
	assert.Equal(t, "bkash/nagad (01700000000)",
		Payment{Method: MethodOnline, SubMethod: SubMethodWallet, WalletNumber: "01700000000"}.Descriptor())
	// Card numbers are masked to the last four digits.
	assert.Equal(t, "card (1111)",
		Payment{Method: MethodOnline, SubMethod: SubMethodCard, CardNumber: "4111111111111111"}.Descriptor())
	assert.Equal(t, "card (42)",
		Payment{Method: MethodOnline, SubMethod: SubMethodCard, CardNumber: "42"}.Descriptor())
}

func TestSubmitSuccessClearsCart(t *testing.T) {
	ctx := context.Background()
	api := &fakeOrderAPI{resp: backend.Order{ID: 101, TotalAmount: 50.0, Status: "PENDING"}}
	cs := loadedCart(t, cart.Item{ProductID: 7, Quantity: 2, UnitPrice: 25.0})
	orch := New(logging.New("error"), cs, api, nil, nil)

	created, err := orch.Submit(ctx, cashSubmission("221B Baker St"))
	require.NoError(t, err)
	assert.Equal(t, int64(101), created.ID)
	assert.Equal(t, 1, api.calls)

	// Payload carries (productId, quantity) pairs only, no prices.
	assert.Equal(t, []backend.OrderItemRequest{{ProductID: 7, Quantity: 2}}, api.lastReq.Items)
	assert.Equal(t, "cash on delivery", api.lastReq.PaymentMethod)
	assert.Equal(t, "221B Baker St", api.lastReq.ShippingAddress)
	assert.NotEmpty(t, api.lastReq.IdempotencyKey)

	assert.Zero(t, cs.Len())
}

func TestSubmitFailureLeavesCartUntouched(t *testing.T) {
	api := &fakeOrderAPI{err: &backend.APIError{Status: 409, Message: "insufficient stock"}}
	cs := loadedCart(t, cart.Item{ProductID: 7, Quantity: 2, UnitPrice: 25.0})
	orch := New(logging.New("error"), cs, api, nil, nil)

	_, err := orch.Submit(context.Background(), cashSubmission("221B Baker St"))
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "insufficient stock", apiErr.Message)
	assert.Equal(t, 1, cs.Len())
}

func TestSubmitRejectsLostReservation(t *testing.T) {
	api := &fakeOrderAPI{}
	cs := loadedCart(t, cart.Item{ProductID: 1, Quantity: 1, UnitPrice: 1.0})
	orch := New(logging.New("error"), cs, api, &fakeGuard{won: false}, nil)

	_, err := orch.Submit(context.Background(), cashSubmission("x"))
	require.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.Zero(t, api.calls)
	assert.Equal(t, 1, cs.Len())
}

func TestSubmitProceedsWhenGuardUnavailable(t *testing.T) {
	api := &fakeOrderAPI{resp: backend.Order{ID: 5}}
	cs := loadedCart(t, cart.Item{ProductID: 1, Quantity: 1, UnitPrice: 1.0})
	orch := New(logging.New("error"), cs, api, &fakeGuard{err: assert.AnError}, nil)

	_, err := orch.Submit(context.Background(), cashSubmission("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)
}

func TestSubmitBlocksReentrantAttempt(t *testing.T) {
	api := &fakeOrderAPI{resp: backend.Order{ID: 6}}
	cs := loadedCart(t, cart.Item{ProductID: 1, Quantity: 1, UnitPrice: 1.0})
	orch := New(logging.New("error"), cs, api, nil, nil)

	var reentrant error
	api.onCreate = func() {
		_, reentrant = orch.Submit(context.Background(), cashSubmission("x"))
	}

	_, err := orch.Submit(context.Background(), cashSubmission("x"))
	require.NoError(t, err)
	require.ErrorIs(t, reentrant, ErrSubmissionInFlight)
	assert.Equal(t, 1, api.calls)
}

func TestKVGuardReservesOnce(t *testing.T) {
	ctx := context.Background()
	g := NewKVGuard(kv.NewMemory(), time.Minute)

	won, err := g.Reserve(ctx, "attempt-1")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = g.Reserve(ctx, "attempt-1")
	require.NoError(t, err)
	assert.False(t, won)

	won, err = g.Reserve(ctx, "attempt-2")
	require.NoError(t, err)
	assert.True(t, won)
}

func TestKVGuardReservationExpires(t *testing.T) {
	ctx := context.Background()
	g := NewKVGuard(kv.NewMemory(), time.Minute).(*kvGuard)

	won, err := g.Reserve(ctx, "attempt-1")
	require.NoError(t, err)
	require.True(t, won)

	g.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	won, err = g.Reserve(ctx, "attempt-1")
	require.NoError(t, err)
	assert.True(t, won)
}

func TestFingerprintStableAndScoped(t *testing.T) {
	items := []cart.Item{{ProductID: 7, Quantity: 2, UnitPrice: 25.0}}
	p := Payment{Method: MethodCashOnDelivery}

	a := Fingerprint("sess-1", "221B Baker St", p, items)
	b := Fingerprint("sess-1", " 221B Baker St ", p, items)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, Fingerprint("sess-2", "221B Baker St", p, items))
	assert.NotEqual(t, a, Fingerprint("sess-1", "10 Downing St", p, items))
	assert.NotEqual(t, a, Fingerprint("sess-1", "221B Baker St", p,
		[]cart.Item{{ProductID: 7, Quantity: 3, UnitPrice: 25.0}}))
}

// An identical resubmission derives the same idempotency key, so the
// guard rejects it instead of placing a second order.
func TestSubmitIdenticalResubmissionIsRejected(t *testing.T) {
	ctx := context.Background()
	api := &fakeOrderAPI{resp: backend.Order{ID: 101}}
	cs := loadedCart(t, cart.Item{ProductID: 7, Quantity: 2, UnitPrice: 25.0})
	guard := NewKVGuard(kv.NewMemory(), time.Minute)
	orch := New(logging.New("error"), cs, api, guard, nil)

	_, err := orch.Submit(ctx, cashSubmission("221B Baker St"))
	require.NoError(t, err)
	firstKey := api.lastReq.IdempotencyKey

	// Same items land in the cart again and the same form is submitted.
	require.NoError(t, cs.Add(ctx, 7, 2, 25.0, -1))
	_, err = orch.Submit(ctx, cashSubmission("221B Baker St"))
	require.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.Equal(t, 1, api.calls)
	assert.NotEmpty(t, firstKey)
}

// A failed attempt frees its reservation, so the user can retry the
// same order; the retry repeats the same idempotency key.
func TestSubmitFailedAttemptCanBeRetried(t *testing.T) {
	ctx := context.Background()
	api := &fakeOrderAPI{err: &backend.APIError{Status: 500, Message: "boom"}}
	cs := loadedCart(t, cart.Item{ProductID: 7, Quantity: 2, UnitPrice: 25.0})
	guard := NewKVGuard(kv.NewMemory(), time.Minute)
	orch := New(logging.New("error"), cs, api, guard, nil)

	_, err := orch.Submit(ctx, cashSubmission("221B Baker St"))
	require.Error(t, err)
	firstKey := api.lastReq.IdempotencyKey

	api.err = nil
	api.resp = backend.Order{ID: 101}
	_, err = orch.Submit(ctx, cashSubmission("221B Baker St"))
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls)
	assert.Equal(t, firstKey, api.lastReq.IdempotencyKey)
}

func TestSubmitUsesCallerAttemptKey(t *testing.T) {
	api := &fakeOrderAPI{resp: backend.Order{ID: 9}}
	cs := loadedCart(t, cart.Item{ProductID: 1, Quantity: 1, UnitPrice: 1.0})
	orch := New(logging.New("error"), cs, api, nil, nil)

	sub := cashSubmission("x")
	sub.AttemptKey = "attempt-42"
	_, err := orch.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "attempt-42", api.lastReq.IdempotencyKey)
}
