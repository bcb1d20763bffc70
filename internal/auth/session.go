// Package auth manages the client session: the bearer token and the
// cached user record, both persisted to the key-value store.
package auth

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shophub-dev/storefront/internal/backend"
	"github.com/shophub-dev/storefront/internal/kv"
)

type API interface {
	Signup(ctx context.Context, req backend.SignupRequest) (backend.AuthResponse, error)
	Login(ctx context.Context, email, password string) (backend.AuthResponse, error)
}

type User struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Session struct {
	api API
	kvs kv.Store
}

func NewSession(api API, kvs kv.Store) *Session {
	return &Session{api: api, kvs: kvs}
}

// Signup registers a new customer account and opens an email
// verification, returning the issued code. Credentials are not
// persisted; the account logs in only after VerifyEmail. The display
// name splits into first/last on the first space.
func (s *Session) Signup(ctx context.Context, name, email, password string) (backend.AuthResponse, string, error) {
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	resp, err := s.api.Signup(ctx, backend.SignupRequest{
		Username:  name,
		Email:     email,
		Password:  password,
		FirstName: first,
		LastName:  last,
		Role:      "CUSTOMER",
	})
	if err != nil {
		return backend.AuthResponse{}, "", err
	}
	code, err := s.BeginVerification(ctx, email)
	if err != nil {
		return backend.AuthResponse{}, "", err
	}
	return resp, code, nil
}

func (s *Session) Login(ctx context.Context, email, password string) (backend.AuthResponse, error) {
	if _, pending := s.PendingCode(ctx, email); pending {
		return backend.AuthResponse{}, ErrEmailNotVerified
	}
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return backend.AuthResponse{}, err
	}
	return resp, s.store(ctx, resp)
}

func (s *Session) Logout(ctx context.Context) {
	s.Invalidate(ctx)
}

// Invalidate removes the token and user record. Registered as the
// backend client's 401 hook so every call site shares one expiry path.
func (s *Session) Invalidate(ctx context.Context) {
	_ = s.kvs.Delete(ctx, kv.KeyAuthToken)
	_ = s.kvs.Delete(ctx, kv.KeyUser)
}

func (s *Session) Token(ctx context.Context) string {
	raw, err := s.kvs.Get(ctx, kv.KeyAuthToken)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (s *Session) Current(ctx context.Context) (User, bool) {
	raw, err := s.kvs.Get(ctx, kv.KeyUser)
	if err != nil {
		return User{}, false
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return User{}, false
	}
	return u, true
}

func (s *Session) IsAuthenticated(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

func (s *Session) IsAdmin(ctx context.Context) bool {
	u, ok := s.Current(ctx)
	return ok && strings.EqualFold(u.Role, "admin")
}

func (s *Session) store(ctx context.Context, resp backend.AuthResponse) error {
	if err := s.kvs.Set(ctx, kv.KeyAuthToken, []byte(resp.Token)); err != nil {
		return err
	}
	raw, err := json.Marshal(User{Email: resp.Email, Username: resp.Username, Role: resp.Role})
	if err != nil {
		return err
	}
	return s.kvs.Set(ctx, kv.KeyUser, raw)
}
