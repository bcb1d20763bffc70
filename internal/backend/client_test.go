package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shophub-dev/storefront/pkg/logging"
)

func testClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(logging.New("error"), srv.URL, opts...)
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]Product{})
	}, WithTokenSource(func(context.Context) string { return "tok-123" }))

	_, err := c.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestNoAuthHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]Product{})
	}, WithTokenSource(func(context.Context) string { return "" }))

	_, err := c.Products(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestUnauthorizedFiresHookOnce(t *testing.T) {
	invalidated := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, WithUnauthorizedHook(func(context.Context) { invalidated++ }))

	_, err := c.Orders(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, invalidated)
}

func TestErrorMessagePrecedence(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message field wins", `{"message":"insufficient stock","error":"ignored"}`, "insufficient stock"},
		{"error field fallback", `{"error":"duplicate account"}`, "duplicate account"},
		{"status text fallback", `not json`, "Bad Request"},
		{"empty body", ``, "Bad Request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.CreateOrder(context.Background(), OrderRequest{})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.want, apiErr.Message)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		})
	}
}

func TestOrderListToleratesNonArrayBody(t *testing.T) {
	for _, body := range []string{`{}`, `null`, `"unexpected"`, `{"message":"no orders"}`} {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		orders, err := c.Orders(context.Background())
		require.NoError(t, err, body)
		assert.Empty(t, orders, body)
	}
}

func TestOrderListDecodesArray(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/admin/all", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":101,"totalAmount":50.0,"status":"PENDING"}]`))
	})
	orders, err := c.AllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(101), orders[0].ID)
	assert.InDelta(t, 50.0, orders[0].TotalAmount, 1e-9)
}

func TestCreateOrderRequestShape(t *testing.T) {
	var (
		gotIdem string
		gotBody map[string]any
	)
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotIdem = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(Order{ID: 101, TotalAmount: 50.0, Status: "PENDING"})
	})

	created, err := c.CreateOrder(context.Background(), OrderRequest{
		ShippingAddress: "221B Baker St",
		PaymentMethod:   "cash on delivery",
		Items:           []OrderItemRequest{{ProductID: 7, Quantity: 2}},
		IdempotencyKey:  "attempt-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(101), created.ID)

	assert.Equal(t, "attempt-1", gotIdem)
	assert.Equal(t, "221B Baker St", gotBody["shippingAddress"])
	items, ok := gotBody["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	// Prices never travel with the submission.
	assert.NotContains(t, item, "price")
	assert.NotContains(t, gotBody, "IdempotencyKey")
}

func TestUpdateOrderStatusPatch(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotBody   map[string]string
	)
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.UpdateOrderStatus(context.Background(), 42, "SHIPPED"))
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/api/orders/admin/42/status", gotPath)
	assert.Equal(t, map[string]string{"status": "SHIPPED"}, gotBody)
}
