package web

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/shophub-dev/storefront/internal/auth"
	"github.com/shophub-dev/storefront/internal/kv"
)

const sessionCookie = "storefront_session"

type sessionKey struct{}

// State is the per-browser-session view of the client state: a
// namespaced slice of the key-value store plus the auth session bound
// to it. One State lives per session id so flags on it, like the
// checkout latch, survive across requests.
type State struct {
	ID   string
	KV   kv.Store
	Auth *auth.Session

	checkingOut atomic.Bool
}

// BeginCheckout claims the session's single checkout slot. It reports
// false while another submission for the same session is in flight.
func (st *State) BeginCheckout() bool { return st.checkingOut.CompareAndSwap(false, true) }

func (st *State) EndCheckout() { st.checkingOut.Store(false) }

// Sessions issues session cookies and binds each request to its slice
// of the backing store.
type Sessions struct {
	root kv.Store
	api  auth.API

	mu     sync.Mutex
	states map[string]*State
}

func NewSessions(root kv.Store, api auth.API) *Sessions {
	return &Sessions{root: root, api: api, states: map[string]*State{}}
}

func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The cookie value becomes a store key prefix, so only a
		// well-formed UUID is accepted; anything else gets a fresh id.
		sid := ""
		if c, err := r.Cookie(sessionCookie); err == nil {
			if id, err := uuid.Parse(c.Value); err == nil {
				sid = id.String()
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		state := s.state(sid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, state)))
	})
}

func (s *Sessions) state(sid string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[sid]; ok {
		return st
	}
	store := kv.Prefixed(s.root, "sess:"+sid+":")
	st := &State{
		ID:   sid,
		KV:   store,
		Auth: auth.NewSession(s.api, store),
	}
	s.states[sid] = st
	return st
}

func stateFrom(ctx context.Context) *State {
	st, _ := ctx.Value(sessionKey{}).(*State)
	return st
}

// TokenFromContext is the backend client's token source: the bearer
// token of whichever session issued the request.
func (s *Sessions) TokenFromContext(ctx context.Context) string {
	if st := stateFrom(ctx); st != nil {
		return st.Auth.Token(ctx)
	}
	return ""
}

// InvalidateFromContext is the backend client's 401 hook.
func (s *Sessions) InvalidateFromContext(ctx context.Context) {
	if st := stateFrom(ctx); st != nil {
		st.Auth.Invalidate(ctx)
	}
}
