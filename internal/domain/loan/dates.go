package loan

import "time"

const DateLayout = "2006-01-02"

// Date builds a calendar date at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func truncateDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return Date(t.Year(), t.Month(), t.Day())
}

func daysBetween(from, to time.Time) int {
	return int(truncateDate(to).Sub(truncateDate(from)).Hours() / 24)
}

// addMonths keeps the anchor's day of month, clamped to the month's last day.
func addMonths(anchor time.Time, months int) time.Time {
	first := Date(anchor.Year(), anchor.Month(), 1).AddDate(0, months, 0)
	lastDay := first.AddDate(0, 1, -1).Day()
	day := anchor.Day()
	if day > lastDay {
		day = lastDay
	}
	return Date(first.Year(), first.Month(), day)
}

func addPeriods(anchor time.Time, f Frequency, count int) time.Time {
	switch f {
	case FrequencyDays:
		return truncateDate(anchor).AddDate(0, 0, count)
	case FrequencyWeeks:
		return truncateDate(anchor).AddDate(0, 0, 7*count)
	case FrequencyYears:
		return addMonths(anchor, 12*count)
	default:
		return addMonths(anchor, count)
	}
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
