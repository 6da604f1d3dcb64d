package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides the read-only aggregation queries behind the dashboard.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountClients returns the number of registered clients.
func (r *Repository) CountClients(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients`).Scan(&count)
	return count, err
}

// TotalReceivable sums the outstanding balance of all partially paid sales.
func (r *Repository) TotalReceivable(ctx context.Context) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount - paid_amount), 0) FROM sales WHERE total_amount > paid_amount`).Scan(&total)
	return total, err
}

// OverdueTotal sums the outstanding balance of overdue sales.
func (r *Repository) OverdueTotal(ctx context.Context) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount - paid_amount), 0) FROM sales WHERE status = 'OVERDUE'`).Scan(&total)
	return total, err
}

// TotalPayable sums open purchase orders.
func (r *Repository) TotalPayable(ctx context.Context) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM purchase_orders WHERE NOT paid`).Scan(&total)
	return total, err
}

// SalesBetween sums sale totals over the half-open interval [start, end).
func (r *Repository) SalesBetween(ctx context.Context, start, end time.Time) (PeriodTotals, error) {
	var totals PeriodTotals
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0), COUNT(*) FROM sales WHERE sale_date >= $1 AND sale_date < $2`,
		start, end).Scan(&totals.Total, &totals.Count)
	return totals, err
}

// SalesByMonth buckets sale totals by UTC calendar month, ascending.
func (r *Repository) SalesByMonth(ctx context.Context) ([]MonthBucket, error) {
	rows, err := r.pool.Query(ctx, `SELECT to_char(sale_date AT TIME ZONE 'UTC', 'YYYY-MM') AS month, SUM(total_amount)
FROM sales GROUP BY 1 ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var series []MonthBucket
	for rows.Next() {
		var b MonthBucket
		if err := rows.Scan(&b.Month, &b.Total); err != nil {
			return nil, err
		}
		series = append(series, b)
	}
	return series, rows.Err()
}

// TopProducts ranks products by quantity sold in [start, end). Ties break on
// product id ascending so the ordering is stable across runs.
func (r *Repository) TopProducts(ctx context.Context, start, end time.Time, limit int) ([]ProductRank, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, SUM(si.quantity)::bigint AS sold
FROM sale_items si
JOIN sales s ON s.id = si.sale_id
JOIN products p ON p.id = si.product_id
WHERE s.sale_date >= $1 AND s.sale_date < $2
GROUP BY p.id, p.name
ORDER BY sold DESC, p.id ASC
LIMIT $3`, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ranks []ProductRank
	for rows.Next() {
		var rank ProductRank
		if err := rows.Scan(&rank.ProductID, &rank.Name, &rank.Quantity); err != nil {
			return nil, err
		}
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}

// TopClients ranks clients by amount spent in [start, end). Ties break on
// client id ascending.
func (r *Repository) TopClients(ctx context.Context, start, end time.Time, limit int) ([]ClientRank, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.name, SUM(s.total_amount) AS spent
FROM sales s
JOIN clients c ON c.id = s.client_id
WHERE s.sale_date >= $1 AND s.sale_date < $2
GROUP BY c.id, c.name
ORDER BY spent DESC, c.id ASC
LIMIT $3`, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ranks []ClientRank
	for rows.Next() {
		var rank ClientRank
		if err := rows.Scan(&rank.ClientID, &rank.Name, &rank.Total); err != nil {
			return nil, err
		}
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}
