// Package backend is the single boundary to the commerce REST API.
// Every network call in the client goes through it: it attaches the
// bearer token, propagates trace context, decodes the backend's error
// body and invalidates the session on 401.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shophub-dev/storefront/pkg/tracing"
)

// ErrUnauthorized reports an expired or invalid session. By the time a
// caller sees it the session invalidation hook has already run.
var ErrUnauthorized = errors.New("backend: unauthorized")

// APIError is a server-reported business error. Message is surfaced to
// the user verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
}

type Client struct {
	log            *slog.Logger
	baseURL        string
	httpc          *http.Client
	tokenFn        func(ctx context.Context) string
	onUnauthorized func(ctx context.Context)
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

func WithTokenSource(fn func(ctx context.Context) string) Option {
	return func(c *Client) { c.tokenFn = fn }
}

func WithUnauthorizedHook(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func New(log *slog.Logger, baseURL string, opts ...Option) *Client {
	c := &Client{
		log:     log,
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetTokenSource(fn func(ctx context.Context) string) { c.tokenFn = fn }
func (c *Client) SetUnauthorizedHook(fn func(ctx context.Context))   { c.onUnauthorized = fn }

func (c *Client) Signup(ctx context.Context, req SignupRequest) (AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, nil, &resp)
	return resp, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", LoginRequest{Email: email, Password: password}, nil, &resp)
	return resp, err
}

func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Product(ctx context.Context, id int64) (Product, error) {
	var out Product
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/products/%d", id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	var out Product
	err := c.do(ctx, http.MethodPost, "/api/products", in, nil, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	var out Product
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/products/%d", id), in, nil, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/products/%d", id), nil, nil, nil)
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	var headers http.Header
	if req.IdempotencyKey != "" {
		headers = http.Header{"Idempotency-Key": []string{req.IdempotencyKey}}
	}
	var out Order
	err := c.do(ctx, http.MethodPost, "/api/orders", req, headers, &out)
	return out, err
}

// Orders returns the caller's confirmed orders. A non-array body is
// treated as an empty list, never as a failure.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	return c.orderList(ctx, "/api/orders")
}

// AllOrders is the admin-scoped listing.
func (c *Client) AllOrders(ctx context.Context) ([]Order, error) {
	return c.orderList(ctx, "/api/orders/admin/all")
}

func (c *Client) orderList(ctx context.Context, path string) ([]Order, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []Order{}, nil
	}
	var out []Order
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return []Order{}, nil
	}
	return out, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	body := map[string]string{"status": status}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/orders/admin/%d/status", orderID), body, nil, nil)
}

func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DashboardStats(ctx context.Context) (DashboardStats, error) {
	var out DashboardStats
	err := c.do(ctx, http.MethodGet, "/api/dashboard/stats", nil, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in any, headers http.Header, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.tokenFn != nil {
		if token := c.tokenFn(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	tracing.InjectHTTPHeaders(ctx, req.Header)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		c.log.Warn("session invalidated", "method", method, "path", path)
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorMessage picks the canonical error field from the backend's body:
// "message" first, then "error", then the HTTP status text.
func errorMessage(resp *http.Response) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(resp.StatusCode)
}
