package shared

import "time"

// DateLayout is the wire and storage format of calendar dates
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar day, expressed as midnight UTC.
// The day is taken in t's own location so that "today in Asia/Kolkata" stays the same date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TodayIn returns the current calendar day in loc
func TodayIn(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// AddDays shifts a calendar day by n days
func AddDays(day time.Time, n int) time.Time {
	return DateOf(day).AddDate(0, 0, n)
}

// IsBusinessDay reports whether day falls Monday to Friday
func IsBusinessDay(day time.Time) bool {
	wd := day.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// BusinessDaysBefore returns the last k business days strictly before end, newest first
func BusinessDaysBefore(end time.Time, k int) []time.Time {
	if k <= 0 {
		return nil
	}

	days := make([]time.Time, 0, k)
	current := AddDays(end, -1)
	for len(days) < k {
		if IsBusinessDay(current) {
			days = append(days, current)
		}
		current = AddDays(current, -1)
	}
	return days
}

// FormatDate renders a calendar day as YYYY-MM-DD
func FormatDate(day time.Time) string {
	return day.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar day
func ParseDate(text string) (time.Time, error) {
	t, err := time.Parse(DateLayout, text)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}
