package ledger

import "time"

// DeriveStatus classifies a sale from its amounts and due date. Rules apply in
// priority order: full payment always wins, then an elapsed due date, then
// pending. A sale with no due date can never be overdue. The comparison is
// date-only: both dates are truncated to midnight UTC before comparing, so a
// sale due today is still current regardless of time of day.
func DeriveStatus(totalAmount, paidAmount float64, dueDate *time.Time, today time.Time) SaleStatus {
	if paidAmount >= totalAmount {
		return StatusPaid
	}
	if dueDate != nil && DateOnly(*dueDate).Before(DateOnly(today)) {
		return StatusOverdue
	}
	return StatusPending
}

// DateOnly truncates t to midnight UTC. All due-date comparisons and
// aggregation period boundaries use this single reference zone.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first instant of t's calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
