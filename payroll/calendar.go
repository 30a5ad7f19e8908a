package payroll

import "time"

// DaysInMonth returns the calendar-correct number of days (28-31) of the
// month containing t. Leap years are handled by the calendar itself.
func DaysInMonth(t time.Time) int {
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// MonthKey formats the salary month, e.g. "2025-02".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
