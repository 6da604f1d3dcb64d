package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/balcao-erp/balcao/internal/platform/httpx"
)

// amountEpsilon tolerates float rounding when comparing monetary sums.
const amountEpsilon = 0.005

// CacheInvalidator is notified after every ledger write so cached dashboard
// aggregates get refreshed.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service owns the sale/payment ledger. ApplyPayment is the only code path
// that changes a sale's paid amount.
type Service struct {
	repo   RepositoryPort
	cache  CacheInvalidator
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service instance. cache may be nil.
func NewService(repo RepositoryPort, cache CacheInvalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// CreateSale records a sale with its line items and an optional initial
// payment. The total is fixed here from the line items.
func (s *Service) CreateSale(ctx context.Context, input CreateSaleInput) (*Sale, error) {
	if input.ClientID == 0 {
		return nil, fmt.Errorf("client is required: %w", httpx.ErrValidation)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("at least one item is required: %w", httpx.ErrValidation)
	}
	var total float64
	items := make([]SaleItem, 0, len(input.Items))
	for _, in := range input.Items {
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("item quantity must be positive: %w", httpx.ErrValidation)
		}
		if in.UnitPrice < 0 {
			return nil, fmt.Errorf("item unit price must not be negative: %w", httpx.ErrValidation)
		}
		it := SaleItem{ProductID: in.ProductID, Quantity: in.Quantity, UnitPrice: in.UnitPrice}
		total += it.Subtotal()
		items = append(items, it)
	}
	if total <= 0 {
		return nil, fmt.Errorf("sale total must be positive: %w", httpx.ErrValidation)
	}
	if input.InitialPayment != nil {
		if input.InitialPayment.Amount <= 0 {
			return nil, fmt.Errorf("payment amount must be positive: %w", httpx.ErrValidation)
		}
		if input.InitialPayment.Amount-total > amountEpsilon {
			return nil, fmt.Errorf("payment exceeds amount due: %w", httpx.ErrValidation)
		}
	}

	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = s.now()
	}
	today := s.now()

	var created *Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale := Sale{
			ClientID:    input.ClientID,
			TotalAmount: total,
			Status:      DeriveStatus(total, 0, input.DueDate, today),
			SaleDate:    saleDate,
			DueDate:     input.DueDate,
			Notes:       input.Notes,
		}
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		if err := tx.InsertSaleItems(ctx, id, items); err != nil {
			return err
		}
		if input.InitialPayment != nil {
			if _, err := s.insertAndRecompute(ctx, tx, id, total, input.DueDate, *input.InitialPayment, today); err != nil {
				return err
			}
		}
		fresh, err := tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		created = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return created, nil
}

// ApplyPayment appends a payment and atomically recomputes the sale's paid
// amount and status. Paid amount is always recomputed as the sum of payments
// rather than incremented, so the operation commutes with the overdue rescan
// and heals any prior drift. Overpayment is rejected.
func (s *Service) ApplyPayment(ctx context.Context, saleID int64, input PaymentInput) (*Sale, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive: %w", httpx.ErrValidation)
	}
	today := s.now()

	var updated *Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("sale %d: %w", saleID, httpx.ErrNotFound)
			}
			return err
		}
		fresh, err := s.insertAndRecompute(ctx, tx, sale.ID, sale.TotalAmount, sale.DueDate, input, today)
		if err != nil {
			return err
		}
		sale.PaidAmount = fresh.paid
		sale.Status = fresh.status
		updated = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return updated, nil
}

type recomputeResult struct {
	paid   float64
	status SaleStatus
}

func (s *Service) insertAndRecompute(ctx context.Context, tx TxRepository, saleID int64, total float64, dueDate *time.Time, input PaymentInput, today time.Time) (recomputeResult, error) {
	paidBefore, err := tx.SumPayments(ctx, saleID)
	if err != nil {
		return recomputeResult{}, err
	}
	if paidBefore+input.Amount-total > amountEpsilon {
		return recomputeResult{}, fmt.Errorf("payment of %.2f exceeds amount due %.2f: %w",
			input.Amount, total-paidBefore, httpx.ErrValidation)
	}

	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = today
	}
	if _, err := tx.InsertPayment(ctx, Payment{
		SaleID:        saleID,
		Receipt:       uuid.NewString(),
		Amount:        input.Amount,
		PaymentDate:   paymentDate,
		Method:        input.Method,
		Installments:  input.Installments,
		CardBrand:     input.CardBrand,
		FinancingBank: input.FinancingBank,
	}); err != nil {
		return recomputeResult{}, err
	}

	paid, err := tx.SumPayments(ctx, saleID)
	if err != nil {
		return recomputeResult{}, err
	}
	status := DeriveStatus(total, paid, dueDate, today)
	if err := tx.UpdateSaleLedger(ctx, saleID, paid, status); err != nil {
		return recomputeResult{}, err
	}
	return recomputeResult{paid: paid, status: status}, nil
}

// UpdateTerms edits a sale's due date, notes and optionally its line items.
// Any change re-derives the status from fresh payment sums.
func (s *Service) UpdateTerms(ctx context.Context, saleID int64, input UpdateTermsInput) (*Sale, error) {
	today := s.now()

	var updated *Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("sale %d: %w", saleID, httpx.ErrNotFound)
			}
			return err
		}

		total := sale.TotalAmount
		if len(input.Items) > 0 {
			items := make([]SaleItem, 0, len(input.Items))
			total = 0
			for _, in := range input.Items {
				if in.Quantity <= 0 {
					return fmt.Errorf("item quantity must be positive: %w", httpx.ErrValidation)
				}
				it := SaleItem{ProductID: in.ProductID, Quantity: in.Quantity, UnitPrice: in.UnitPrice}
				total += it.Subtotal()
				items = append(items, it)
			}
			if total <= 0 {
				return fmt.Errorf("sale total must be positive: %w", httpx.ErrValidation)
			}
			if err := tx.ReplaceSaleItems(ctx, saleID, items); err != nil {
				return err
			}
		}

		dueDate := sale.DueDate
		if input.ClearDueDate {
			dueDate = nil
		} else if input.DueDate != nil {
			dueDate = input.DueDate
		}
		notes := sale.Notes
		if input.Notes != nil {
			notes = *input.Notes
		}

		paid, err := tx.SumPayments(ctx, saleID)
		if err != nil {
			return err
		}
		if paid-total > amountEpsilon {
			return fmt.Errorf("total %.2f below amount already paid %.2f: %w", total, paid, httpx.ErrValidation)
		}

		if err := tx.UpdateSaleTerms(ctx, saleID, total, dueDate, notes); err != nil {
			return err
		}
		status := DeriveStatus(total, paid, dueDate, today)
		if err := tx.UpdateSaleLedger(ctx, saleID, paid, status); err != nil {
			return err
		}

		sale.TotalAmount = total
		sale.DueDate = dueDate
		sale.Notes = notes
		sale.PaidAmount = paid
		sale.Status = status
		updated = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return updated, nil
}

// GetSale returns one sale, healing the stored paid amount when it disagrees
// with the sum of its payments. Drift only happens after a bug or a manual
// data edit, so it is logged and repaired rather than surfaced as an error.
func (s *Service) GetSale(ctx context.Context, id int64) (*Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("sale %d: %w", id, httpx.ErrNotFound)
		}
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	var sum float64
	for _, p := range payments {
		sum += p.Amount
	}
	if math.Abs(sum-sale.PaidAmount) > amountEpsilon {
		if s.logger != nil {
			s.logger.Warn("paid amount drift detected, healing",
				slog.Int64("sale_id", id),
				slog.Float64("stored", sale.PaidAmount),
				slog.Float64("computed", sum))
		}
		healed, healErr := s.heal(ctx, id)
		if healErr != nil {
			return nil, healErr
		}
		return healed, nil
	}
	return sale, nil
}

func (s *Service) heal(ctx context.Context, id int64) (*Sale, error) {
	today := s.now()
	var healed *Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		paid, err := tx.SumPayments(ctx, id)
		if err != nil {
			return err
		}
		status := DeriveStatus(sale.TotalAmount, paid, sale.DueDate, today)
		if err := tx.UpdateSaleLedger(ctx, id, paid, status); err != nil {
			return err
		}
		sale.PaidAmount = paid
		sale.Status = status
		healed = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return healed, nil
}

// ListSales returns sales matching the request filters.
func (s *Service) ListSales(ctx context.Context, req ListSalesRequest) ([]Sale, error) {
	return s.repo.ListSales(ctx, req)
}

// ListPayments returns the payments of a sale.
func (s *Service) ListPayments(ctx context.Context, saleID int64) ([]Payment, error) {
	if _, err := s.repo.GetSale(ctx, saleID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("sale %d: %w", saleID, httpx.ErrNotFound)
		}
		return nil, err
	}
	return s.repo.ListPayments(ctx, saleID)
}

// ListSaleItems returns the line items of a sale.
func (s *Service) ListSaleItems(ctx context.Context, saleID int64) ([]SaleItem, error) {
	return s.repo.ListSaleItems(ctx, saleID)
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("dashboard cache bump", slog.Any("error", err))
	}
}
