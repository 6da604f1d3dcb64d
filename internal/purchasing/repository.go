package purchasing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the purchase order does not exist.
var ErrNotFound = errors.New("purchasing: order not found")

// RepositoryPort defines data access for purchase orders.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*PurchaseOrder, error)
	List(ctx context.Context, openOnly bool) ([]PurchaseOrder, error)
	Create(ctx context.Context, order PurchaseOrder) (int64, error)
	MarkPaid(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, supplier_id, description, total_amount, order_date, due_date, paid, created_at, updated_at`

// Get returns one purchase order by id.
func (r *Repository) Get(ctx context.Context, id int64) (*PurchaseOrder, error) {
	var o PurchaseOrder
	err := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`, id).
		Scan(&o.ID, &o.SupplierID, &o.Description, &o.TotalAmount, &o.OrderDate, &o.DueDate, &o.Paid, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// List returns purchase orders, optionally only the unpaid ones.
func (r *Repository) List(ctx context.Context, openOnly bool) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE NOT $1 OR NOT paid ORDER BY order_date DESC, id DESC`, openOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		var o PurchaseOrder
		if err := rows.Scan(&o.ID, &o.SupplierID, &o.Description, &o.TotalAmount, &o.OrderDate, &o.DueDate, &o.Paid, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Create registers a new purchase order.
func (r *Repository) Create(ctx context.Context, order PurchaseOrder) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO purchase_orders (supplier_id, description, total_amount, order_date, due_date, paid, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, FALSE, NOW(), NOW()) RETURNING id`,
		order.SupplierID, order.Description, order.TotalAmount, order.OrderDate, order.DueDate).Scan(&id)
	return id, err
}

// MarkPaid settles a purchase order.
func (r *Repository) MarkPaid(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE purchase_orders SET paid = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a purchase order.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
