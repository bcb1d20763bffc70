// Package admin covers the privileged read surface: the user listing
// and the dashboard statistics.
package admin

import (
	"context"

	"github.com/shophub-dev/storefront/internal/backend"
)

type API interface {
	Users(ctx context.Context) ([]backend.User, error)
	DashboardStats(ctx context.Context) (backend.DashboardStats, error)
}

type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

func (s *Service) ListUsers(ctx context.Context) ([]backend.User, error) {
	return s.api.Users(ctx)
}

func (s *Service) Stats(ctx context.Context) (backend.DashboardStats, error) {
	return s.api.DashboardStats(ctx)
}
