// Package cart holds the client-owned pending purchase selection. It is
// the only mutable pre-order state; once checkout succeeds the server's
// order record takes over as the source of truth.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shophub-dev/storefront/internal/kv"
)

var (
	ErrQuantityNotPositive = errors.New("cart: quantity must be greater than zero")
	ErrExceedsStock        = errors.New("cart: quantity exceeds available stock")
)

type Item struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"price"`
}

// Store keeps an in-memory mirror of the cart and writes every mutation
// through to the key-value store before returning, so the two never
// diverge. It is not safe for concurrent use; callers serialize access
// the way a UI event loop does.
type Store struct {
	kvs   kv.Store
	items []Item
}

func NewStore(kvs kv.Store) *Store {
	return &Store{kvs: kvs}
}

// Load hydrates the mirror from the key-value store. A missing or
// unparsable payload resets to an empty cart.
func (s *Store) Load(ctx context.Context) error {
	raw, err := s.kvs.Get(ctx, kv.KeyCart)
	if errors.Is(err, kv.ErrNotFound) {
		s.items = nil
		return nil
	}
	if err != nil {
		return err
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		s.items = nil
		return nil
	}
	s.items = items
	return nil
}

// Add merges quantity into an existing line for productID or appends a
// new one. stockCeiling bounds the resulting quantity; pass a negative
// ceiling to skip the stock check.
func (s *Store) Add(ctx context.Context, productID int64, quantity int, unitPrice float64, stockCeiling int) error {
	if quantity <= 0 {
		return ErrQuantityNotPositive
	}
	next := quantity
	idx := s.index(productID)
	if idx >= 0 {
		next = s.items[idx].Quantity + quantity
	}
	if stockCeiling >= 0 && next > stockCeiling {
		return fmt.Errorf("%w: requested %d, available %d", ErrExceedsStock, next, stockCeiling)
	}

	prev := s.snapshot()
	if idx >= 0 {
		s.items[idx].Quantity = next
	} else {
		s.items = append(s.items, Item{ProductID: productID, Quantity: quantity, UnitPrice: unitPrice})
	}
	return s.persist(ctx, prev)
}

// UpdateQuantity overwrites the stored quantity; zero or less removes
// the line entirely.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, productID)
	}
	idx := s.index(productID)
	if idx < 0 {
		return nil
	}
	prev := s.snapshot()
	s.items[idx].Quantity = quantity
	return s.persist(ctx, prev)
}

// Remove deletes the line for productID. Removing an absent product is
// a no-op.
func (s *Store) Remove(ctx context.Context, productID int64) error {
	idx := s.index(productID)
	if idx < 0 {
		return nil
	}
	prev := s.snapshot()
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return s.persist(ctx, prev)
}

// Clear empties the cart. Invoked only after the server confirmed the
// order.
func (s *Store) Clear(ctx context.Context) error {
	prev := s.snapshot()
	s.items = nil
	return s.persist(ctx, prev)
}

func (s *Store) Items() []Item {
	return s.snapshot()
}

func (s *Store) Len() int {
	return len(s.items)
}

// Total is the pre-checkout sum of unit price times quantity. The server
// still prices the order authoritatively at submission.
func (s *Store) Total() float64 {
	var total float64
	for _, it := range s.items {
		total += it.UnitPrice * float64(it.Quantity)
	}
	return total
}

func (s *Store) index(productID int64) int {
	for i, it := range s.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) snapshot() []Item {
	if s.items == nil {
		return nil
	}
	cp := make([]Item, len(s.items))
	copy(cp, s.items)
	return cp
}

// persist writes the mirror to the key-value store, rolling the mirror
// back to prev when the write fails.
func (s *Store) persist(ctx context.Context, prev []Item) error {
	items := s.items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		s.items = prev
		return err
	}
	if err := s.kvs.Set(ctx, kv.KeyCart, raw); err != nil {
		s.items = prev
		return err
	}
	return nil
}
