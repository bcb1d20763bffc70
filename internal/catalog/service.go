// Package catalog exposes the product listing consumed by the store
// pages and the admin CRUD path.
package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shophub-dev/storefront/internal/backend"
)

type API interface {
	Products(ctx context.Context) ([]backend.Product, error)
	Product(ctx context.Context, id int64) (backend.Product, error)
	CreateProduct(ctx context.Context, in backend.ProductInput) (backend.Product, error)
	UpdateProduct(ctx context.Context, id int64, in backend.ProductInput) (backend.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

func (s *Service) List(ctx context.Context) ([]backend.Product, error) {
	return s.api.Products(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (backend.Product, error) {
	return s.api.Product(ctx, id)
}

// Create assigns a generated SKU when the caller supplied none; the
// backend requires one on creation but not on update.
func (s *Service) Create(ctx context.Context, in backend.ProductInput) (backend.Product, error) {
	if in.SKU == "" {
		in.SKU = generateSKU()
	}
	return s.api.CreateProduct(ctx, in)
}

func (s *Service) Update(ctx context.Context, id int64, in backend.ProductInput) (backend.Product, error) {
	in.SKU = ""
	return s.api.UpdateProduct(ctx, id, in)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.api.DeleteProduct(ctx, id)
}

func generateSKU() string {
	return fmt.Sprintf("SKU-%d-%d", time.Now().UnixMilli(), rand.IntN(10000))
}
