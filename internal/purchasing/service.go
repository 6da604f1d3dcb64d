package purchasing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/balcao-erp/balcao/internal/platform/httpx"
)

// CacheInvalidator mirrors the ledger's hook so payable totals refresh after
// purchasing writes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service handles purchase order business logic.
type Service struct {
	repo   RepositoryPort
	cache  CacheInvalidator
	logger *slog.Logger
}

// NewService builds a Service instance. cache may be nil.
func NewService(repo RepositoryPort, cache CacheInvalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// CreateOrder registers a purchase order.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*PurchaseOrder, error) {
	if input.SupplierID == 0 {
		return nil, fmt.Errorf("supplier is required: %w", httpx.ErrValidation)
	}
	if input.TotalAmount <= 0 {
		return nil, fmt.Errorf("order total must be positive: %w", httpx.ErrValidation)
	}
	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}
	id, err := s.repo.Create(ctx, PurchaseOrder{
		SupplierID:  input.SupplierID,
		Description: input.Description,
		TotalAmount: input.TotalAmount,
		OrderDate:   orderDate,
		DueDate:     input.DueDate,
	})
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return s.Get(ctx, id)
}

// Get returns one purchase order.
func (s *Service) Get(ctx context.Context, id int64) (*PurchaseOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("purchase order %d: %w", id, httpx.ErrNotFound)
		}
		return nil, err
	}
	return order, nil
}

// List returns purchase orders, optionally only the open ones.
func (s *Service) List(ctx context.Context, openOnly bool) ([]PurchaseOrder, error) {
	return s.repo.List(ctx, openOnly)
}

// Settle marks a purchase order paid, removing it from the payable total.
func (s *Service) Settle(ctx context.Context, id int64) (*PurchaseOrder, error) {
	if err := s.repo.MarkPaid(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("purchase order %d: %w", id, httpx.ErrNotFound)
		}
		return nil, err
	}
	s.bump(ctx)
	return s.Get(ctx, id)
}

// Delete removes a purchase order.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("purchase order %d: %w", id, httpx.ErrNotFound)
		}
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("dashboard cache bump", slog.Any("error", err))
	}
}
