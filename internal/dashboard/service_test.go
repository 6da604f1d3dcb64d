package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	clients    int64
	receivable float64
	overdue    float64
	payable    float64
	month      PeriodTotals
	day        PeriodTotals
	series     []MonthBucket
	products   []ProductRank
	clientsTop []ClientRank

	statsCalls int
	rankCalls  int
}

func (m *mockRepo) CountClients(ctx context.Context) (int64, error) {
	m.statsCalls++
	return m.clients, nil
}

func (m *mockRepo) TotalReceivable(ctx context.Context) (float64, error) {
	return m.receivable, nil
}

func (m *mockRepo) OverdueTotal(ctx context.Context) (float64, error) {
	return m.overdue, nil
}

func (m *mockRepo) TotalPayable(ctx context.Context) (float64, error) {
	return m.payable, nil
}

func (m *mockRepo) SalesBetween(ctx context.Context, start, end time.Time) (PeriodTotals, error) {
	if start.Day() == 1 && end.Sub(start) > 48*time.Hour {
		return m.month, nil
	}
	return m.day, nil
}

func (m *mockRepo) SalesByMonth(ctx context.Context) ([]MonthBucket, error) {
	return m.series, nil
}

func (m *mockRepo) TopProducts(ctx context.Context, start, end time.Time, limit int) ([]ProductRank, error) {
	m.rankCalls++
	if limit < len(m.products) {
		return m.products[:limit], nil
	}
	return m.products, nil
}

func (m *mockRepo) TopClients(ctx context.Context, start, end time.Time, limit int) ([]ClientRank, error) {
	m.rankCalls++
	if limit < len(m.clientsTop) {
		return m.clientsTop[:limit], nil
	}
	return m.clientsTop, nil
}

func newTestCache(t *testing.T) (*Cache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), client
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestGetStatsAssemblesAggregates(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{
		clients:    12,
		receivable: 840.50,
		overdue:    300,
		payable:    125.75,
		month:      PeriodTotals{Total: 1500, Count: 3},
		day:        PeriodTotals{Total: 200, Count: 1},
		series: []MonthBucket{
			{Month: "2025-05", Total: 900},
			{Month: "2025-07", Total: 1500},
		},
	}
	cache, _ := newTestCache(t)
	svc := NewService(repo, cache)
	svc.WithNow(fixedClock(time.Date(2025, 7, 18, 15, 30, 0, 0, time.UTC)))

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(12), stats.TotalClients)
	require.Equal(t, 1500.0, stats.SalesThisMonth)
	require.Equal(t, 200.0, stats.SalesToday)
	require.Equal(t, 500.0, stats.AverageTicket)
	require.Equal(t, 840.50, stats.TotalReceivable)
	require.Equal(t, 125.75, stats.TotalPayable)
	require.Equal(t, 300.0, stats.OverdueSales)
	require.Equal(t, repo.series, stats.SalesByMonth)
}

func TestGetStatsEmptyDatasetYieldsZeros(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{}
	svc := NewService(repo, NewCache(nil, 0))
	svc.WithNow(fixedClock(time.Date(2025, 7, 18, 15, 30, 0, 0, time.UTC)))

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.TotalClients)
	require.Zero(t, stats.SalesThisMonth)
	require.Zero(t, stats.AverageTicket, "average ticket is zero when no sales exist, not NaN")
	require.NotNil(t, stats.SalesByMonth)
	require.Empty(t, stats.SalesByMonth)
}

func TestGetStatsUsesCacheUntilBumped(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{clients: 3}
	cache, _ := newTestCache(t)
	svc := NewService(repo, cache)
	svc.WithNow(fixedClock(time.Date(2025, 7, 18, 15, 30, 0, 0, time.UTC)))

	_, err := svc.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.statsCalls)

	// Second read is served from Redis.
	repo.clients = 99
	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.statsCalls)
	require.Equal(t, int64(3), stats.TotalClients)

	// Bumping the version forces a reload with fresh data.
	require.NoError(t, cache.Bump(ctx))
	stats, err = svc.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, repo.statsCalls)
	require.Equal(t, int64(99), stats.TotalClients)
}

func TestTopProductsCapsAndPreservesOrder(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{
		products: []ProductRank{
			{ProductID: 9, Name: "Cement 50kg", Quantity: 40},
			{ProductID: 2, Name: "Sand m3", Quantity: 25},
			{ProductID: 5, Name: "Brick", Quantity: 25},
			{ProductID: 1, Name: "Rebar", Quantity: 10},
			{ProductID: 4, Name: "Gravel", Quantity: 8},
			{ProductID: 7, Name: "Lime", Quantity: 2},
		},
	}
	svc := NewService(repo, NewCache(nil, 0))
	svc.WithNow(fixedClock(time.Date(2025, 7, 18, 15, 30, 0, 0, time.UTC)))

	ranks, err := svc.GetTopProducts(ctx)
	require.NoError(t, err)
	require.Len(t, ranks, TopN)
	// Ties on quantity keep the repository's id-ascending ordering.
	require.Equal(t, int64(2), ranks[1].ProductID)
	require.Equal(t, int64(5), ranks[2].ProductID)
}

func TestTopClientsEmptyIsNotNil(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockRepo{}, NewCache(nil, 0))
	svc.WithNow(fixedClock(time.Date(2025, 7, 18, 15, 30, 0, 0, time.UTC)))

	ranks, err := svc.GetTopClients(ctx)
	require.NoError(t, err)
	require.NotNil(t, ranks)
	require.Empty(t, ranks)
}

func TestRankingsCachedPerMonth(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{clientsTop: []ClientRank{{ClientID: 1, Name: "Acme", Total: 500}}}
	cache, _ := newTestCache(t)
	svc := NewService(repo, cache)
	svc.WithNow(fixedClock(time.Date(2025, 7, 18, 15, 30, 0, 0, time.UTC)))

	_, err := svc.GetTopClients(ctx)
	require.NoError(t, err)
	_, err = svc.GetTopClients(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.rankCalls)

	// A new month resolves to a different key and misses the cache.
	svc.WithNow(fixedClock(time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC)))
	_, err = svc.GetTopClients(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, repo.rankCalls)
}
