package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/balcao-erp/balcao/internal/platform/db"
)

// ErrNotFound indicates the sale does not exist.
var ErrNotFound = errors.New("ledger: sale not found")

// RepositoryPort defines the data access the ledger services need.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (*Sale, error)
	ListSales(ctx context.Context, req ListSalesRequest) ([]Sale, error)
	ListSaleItems(ctx context.Context, saleID int64) ([]SaleItem, error)
	ListPayments(ctx context.Context, saleID int64) ([]Payment, error)
	ListPendingDueBefore(ctx context.Context, cutoff time.Time) ([]Sale, error)
	MarkOverdue(ctx context.Context, id int64) (bool, error)
}

// TxRepository exposes the write operations available inside a transaction.
type TxRepository interface {
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error
	ReplaceSaleItems(ctx context.Context, saleID int64, items []SaleItem) error
	GetSaleForUpdate(ctx context.Context, id int64) (*Sale, error)
	InsertPayment(ctx context.Context, payment Payment) (int64, error)
	SumPayments(ctx context.Context, saleID int64) (float64, error)
	UpdateSaleLedger(ctx context.Context, id int64, paidAmount float64, status SaleStatus) error
	UpdateSaleTerms(ctx context.Context, id int64, totalAmount float64, dueDate *time.Time, notes string) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const saleColumns = `id, client_id, total_amount, paid_amount, status, sale_date, due_date, notes, created_at, updated_at`

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	if err := row.Scan(&s.ID, &s.ClientID, &s.TotalAmount, &s.PaidAmount, &s.Status, &s.SaleDate, &s.DueDate, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetSale returns one sale by id.
func (r *Repository) GetSale(ctx context.Context, id int64) (*Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	return scanSale(row)
}

// ListSales returns sales matching the request filters, newest first.
func (r *Repository) ListSales(ctx context.Context, req ListSalesRequest) ([]Sale, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales
WHERE ($1 = 0 OR client_id = $1) AND ($2 = '' OR status = $2)
ORDER BY sale_date DESC, id DESC LIMIT $3 OFFSET $4`, req.ClientID, string(req.Status), limit, req.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}

func collectSales(rows pgx.Rows) ([]Sale, error) {
	var sales []Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.ClientID, &s.TotalAmount, &s.PaidAmount, &s.Status, &s.SaleDate, &s.DueDate, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

// ListSaleItems returns the line items of a sale.
func (r *Repository) ListSaleItems(ctx context.Context, saleID int64) ([]SaleItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sale_id, product_id, quantity, unit_price FROM sale_items WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SaleItem
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListPayments returns the payments recorded against a sale, oldest first.
func (r *Repository) ListPayments(ctx context.Context, saleID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sale_id, receipt, amount, payment_date, method, installments, card_brand, financing_bank, created_at
FROM payments WHERE sale_id = $1 ORDER BY payment_date, id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Receipt, &p.Amount, &p.PaymentDate, &p.Method, &p.Installments, &p.CardBrand, &p.FinancingBank, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ListPendingDueBefore returns pending sales whose due date has elapsed.
func (r *Repository) ListPendingDueBefore(ctx context.Context, cutoff time.Time) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales
WHERE status = $1 AND due_date IS NOT NULL AND due_date < $2 ORDER BY id`, StatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}

// MarkOverdue flips one sale from pending to overdue. The status guard in the
// WHERE clause keeps the rescan idempotent and safe against a payment landing
// between select and update.
func (r *Repository) MarkOverdue(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE sales SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		StatusOverdue, id, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (client_id, total_amount, paid_amount, status, sale_date, due_date, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id`,
		sale.ClientID, sale.TotalAmount, sale.PaidAmount, sale.Status, sale.SaleDate, sale.DueDate, sale.Notes).Scan(&id)
	return id, err
}

func (t *txRepo) InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error {
	for _, it := range items {
		if _, err := t.tx.Exec(ctx, `INSERT INTO sale_items (sale_id, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4)`,
			saleID, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepo) ReplaceSaleItems(ctx context.Context, saleID int64, items []SaleItem) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID); err != nil {
		return err
	}
	return t.InsertSaleItems(ctx, saleID, items)
}

// GetSaleForUpdate locks the sale row for the remainder of the transaction so
// concurrent payments against the same sale serialize instead of losing updates.
func (t *txRepo) GetSaleForUpdate(ctx context.Context, id int64) (*Sale, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id)
	return scanSale(row)
}

func (t *txRepo) InsertPayment(ctx context.Context, payment Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO payments (sale_id, receipt, amount, payment_date, method, installments, card_brand, financing_bank, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING id`,
		payment.SaleID, payment.Receipt, payment.Amount, payment.PaymentDate, payment.Method, payment.Installments, payment.CardBrand, payment.FinancingBank).Scan(&id)
	return id, err
}

func (t *txRepo) SumPayments(ctx context.Context, saleID int64) (float64, error) {
	var sum float64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE sale_id = $1`, saleID).Scan(&sum)
	return sum, err
}

func (t *txRepo) UpdateSaleLedger(ctx context.Context, id int64, paidAmount float64, status SaleStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE sales SET paid_amount = $1, status = $2, updated_at = NOW() WHERE id = $3`, paidAmount, status, id)
	return err
}

func (t *txRepo) UpdateSaleTerms(ctx context.Context, id int64, totalAmount float64, dueDate *time.Time, notes string) error {
	_, err := t.tx.Exec(ctx, `UPDATE sales SET total_amount = $1, due_date = $2, notes = $3, updated_at = NOW() WHERE id = $4`, totalAmount, dueDate, notes, id)
	return err
}
