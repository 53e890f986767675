package account

import "time"

// MonthWindow returns the start of now's calendar month and the start of the
// following month, both in UTC.
func MonthWindow(now time.Time) (start, next time.Time) {
	now = now.UTC()
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// ResetDue reports whether the monthly counter belongs to a different calendar
// month than now. A reset recorded in a later month than now (clock skew)
// also counts as due.
func (u Usage) ResetDue(now time.Time) bool {
	start, next := MonthWindow(now)
	last := u.LastResetAt.UTC()
	return last.Before(start) || !last.Before(next)
}
