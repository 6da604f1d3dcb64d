package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/balcao-erp/balcao/internal/platform/httpx"
)

// Service handles product master data.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("product code is required: %w", httpx.ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required: %w", httpx.ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("product price must not be negative: %w", httpx.ErrValidation)
	}
	return nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("product %d: %w", id, httpx.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

// List returns products matching the request filters plus the total count.
func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	return s.repo.List(ctx, req)
}

// Create registers a new product with a unique code.
func (s *Service) Create(ctx context.Context, product Product) (*Product, error) {
	if err := s.validate(product); err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetByCode(ctx, product.Code); err == nil && existing != nil {
		return nil, fmt.Errorf("product code %q already in use: %w", product.Code, httpx.ErrDuplicate)
	}
	id, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Update edits a product.
func (s *Service) Update(ctx context.Context, product Product) (*Product, error) {
	if err := s.validate(product); err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetByCode(ctx, product.Code); err == nil && existing != nil && existing.ID != product.ID {
		return nil, fmt.Errorf("product code %q already in use: %w", product.Code, httpx.ErrDuplicate)
	}
	if err := s.repo.Update(ctx, product); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("product %d: %w", product.ID, httpx.ErrNotFound)
		}
		return nil, err
	}
	return s.Get(ctx, product.ID)
}

// Delete removes a product. Referenced products are kept by the database
// constraint; deactivate instead.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("product %d: %w", id, httpx.ErrNotFound)
		}
		return err
	}
	return nil
}
