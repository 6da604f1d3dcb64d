package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func datePtr(t time.Time) *time.Time {
	return &t
}

func TestDeriveStatusFullPaymentWins(t *testing.T) {
	today := time.Date(2025, 7, 22, 10, 0, 0, 0, time.UTC)
	pastDue := datePtr(time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC))

	require.Equal(t, StatusPaid, DeriveStatus(150, 150, pastDue, today))
	require.Equal(t, StatusPaid, DeriveStatus(150, 200, pastDue, today))
	require.Equal(t, StatusPaid, DeriveStatus(150, 150, nil, today))
}

func TestDeriveStatusOverdue(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	due := datePtr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	require.Equal(t, StatusOverdue, DeriveStatus(300, 0, due, today))
	require.Equal(t, StatusOverdue, DeriveStatus(300, 299.99, due, today))
}

func TestDeriveStatusNoDueDateNeverOverdue(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	require.Equal(t, StatusPending, DeriveStatus(300, 0, nil, today))
	require.Equal(t, StatusPending, DeriveStatus(300, 100, nil, today))
}

func TestDeriveStatusDueTodayStillPending(t *testing.T) {
	today := time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)
	due := datePtr(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))

	require.Equal(t, StatusPending, DeriveStatus(300, 0, due, today))
}

func TestDeriveStatusNormalizesTimeOfDay(t *testing.T) {
	// Due late in the day, checked early the next day: one calendar day apart,
	// so overdue, even though less than 24 hours elapsed.
	due := datePtr(time.Date(2025, 6, 14, 23, 50, 0, 0, time.UTC))
	today := time.Date(2025, 6, 15, 0, 10, 0, 0, time.UTC)
	require.Equal(t, StatusOverdue, DeriveStatus(300, 0, due, today))

	// Due at midnight, checked late the same day: same calendar day, pending.
	due = datePtr(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	today = time.Date(2025, 6, 15, 23, 50, 0, 0, time.UTC)
	require.Equal(t, StatusPending, DeriveStatus(300, 0, due, today))
}

func TestDeriveStatusNormalizesZones(t *testing.T) {
	// 2025-06-16 01:00 +02:00 is 2025-06-15 23:00 UTC, the same UTC day as the
	// due date, so the sale is not overdue yet.
	zone := time.FixedZone("CEST", 2*60*60)
	due := datePtr(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	today := time.Date(2025, 6, 16, 1, 0, 0, 0, zone)

	require.Equal(t, StatusPending, DeriveStatus(300, 0, due, today))
}

func TestMonthStart(t *testing.T) {
	ts := time.Date(2025, 7, 22, 15, 4, 5, 0, time.UTC)
	require.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), MonthStart(ts))
}
