package util

import "time"

// MonthEnd returns the last calendar day of t's month at midnight UTC.
func MonthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// AddMonths shifts t by n calendar months, clamping the day to the length
// of the target month (Mar 31 minus one month is Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := t.Day()
	if last := MonthEnd(first).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// MonthEnds returns every calendar month-end in [start, end], ascending.
func MonthEnds(start, end time.Time) []time.Time {
	var out []time.Time
	for d := MonthEnd(start); !d.After(end); d = MonthEnd(d.AddDate(0, 0, 1)) {
		out = append(out, d)
	}
	return out
}

// LastCompletedMonthEnd returns the most recent month-end strictly before
// the month containing now.
func LastCompletedMonthEnd(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 0, 0, 0, 0, 0, time.UTC)
}
