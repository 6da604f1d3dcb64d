package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/balcao-erp/balcao/internal/ledger"
)

// RepositoryPort exposes the aggregation queries the service relies on.
type RepositoryPort interface {
	CountClients(ctx context.Context) (int64, error)
	TotalReceivable(ctx context.Context) (float64, error)
	OverdueTotal(ctx context.Context) (float64, error)
	TotalPayable(ctx context.Context) (float64, error)
	SalesBetween(ctx context.Context, start, end time.Time) (PeriodTotals, error)
	SalesByMonth(ctx context.Context) ([]MonthBucket, error)
	TopProducts(ctx context.Context, start, end time.Time, limit int) ([]ProductRank, error)
	TopClients(ctx context.Context, start, end time.Time, limit int) ([]ClientRank, error)
}

// Service coordinates aggregation query execution with the cache layer. All
// period boundaries are computed in UTC, the same reference zone the status
// derivation uses for due dates.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	now   func() time.Time
}

// NewService wires a RepositoryPort with a Cache helper.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// GetStats resolves the dashboard stats card using cache-aware lookups. The
// independent aggregates are fetched concurrently; an empty dataset yields
// zeros, never an error.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	now := s.now()
	monthStart := ledger.MonthStart(now)
	nextMonth := monthStart.AddDate(0, 1, 0)
	dayStart := ledger.DateOnly(now)
	nextDay := dayStart.AddDate(0, 0, 1)

	loader := func(ctx context.Context) (interface{}, error) {
		var stats Stats
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			count, err := s.repo.CountClients(gctx)
			stats.TotalClients = count
			return err
		})
		g.Go(func() error {
			total, err := s.repo.TotalReceivable(gctx)
			stats.TotalReceivable = total
			return err
		})
		g.Go(func() error {
			total, err := s.repo.OverdueTotal(gctx)
			stats.OverdueSales = total
			return err
		})
		g.Go(func() error {
			total, err := s.repo.TotalPayable(gctx)
			stats.TotalPayable = total
			return err
		})
		g.Go(func() error {
			month, err := s.repo.SalesBetween(gctx, monthStart, nextMonth)
			if err != nil {
				return err
			}
			stats.SalesThisMonth = month.Total
			if month.Count > 0 {
				stats.AverageTicket = month.Total / float64(month.Count)
			}
			return nil
		})
		g.Go(func() error {
			day, err := s.repo.SalesBetween(gctx, dayStart, nextDay)
			if err != nil {
				return err
			}
			stats.SalesToday = day.Total
			return nil
		})
		g.Go(func() error {
			series, err := s.repo.SalesByMonth(gctx)
			if err != nil {
				return err
			}
			if series == nil {
				series = []MonthBucket{}
			}
			stats.SalesByMonth = series
			return nil
		})
		if err := g.Wait(); err != nil {
			return Stats{}, err
		}
		return stats, nil
	}

	var stats Stats
	key, err := s.cache.BuildKey(ctx, "dashboard", "stats", monthStart.Format("2006-01-02"), dayStart.Format("2006-01-02"))
	if err != nil {
		return Stats{}, err
	}
	if err := s.cache.FetchJSON(ctx, key, &stats, loader); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// GetTopProducts returns the top products of the current month by quantity.
func (s *Service) GetTopProducts(ctx context.Context) ([]ProductRank, error) {
	start, end := s.currentMonth()
	loader := func(ctx context.Context) (interface{}, error) {
		ranks, err := s.repo.TopProducts(ctx, start, end, TopN)
		if err != nil {
			return nil, err
		}
		if ranks == nil {
			ranks = []ProductRank{}
		}
		return ranks, nil
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "top_products", start.Format("2006-01"))
	if err != nil {
		return nil, err
	}
	var ranks []ProductRank
	if err := s.cache.FetchJSON(ctx, key, &ranks, loader); err != nil {
		return nil, err
	}
	return ranks, nil
}

// GetTopClients returns the top clients of the current month by amount spent.
func (s *Service) GetTopClients(ctx context.Context) ([]ClientRank, error) {
	start, end := s.currentMonth()
	loader := func(ctx context.Context) (interface{}, error) {
		ranks, err := s.repo.TopClients(ctx, start, end, TopN)
		if err != nil {
			return nil, err
		}
		if ranks == nil {
			ranks = []ClientRank{}
		}
		return ranks, nil
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "top_clients", start.Format("2006-01"))
	if err != nil {
		return nil, err
	}
	var ranks []ClientRank
	if err := s.cache.FetchJSON(ctx, key, &ranks, loader); err != nil {
		return nil, err
	}
	return ranks, nil
}

func (s *Service) currentMonth() (time.Time, time.Time) {
	start := ledger.MonthStart(s.now())
	return start, start.AddDate(0, 1, 0)
}
