package calendar

import "time"

// Range is an inclusive [Start, End] window of wall-clock time.
type Range struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the event interval [start, end] overlaps r.
func (r Range) Overlaps(start, end time.Time) bool {
	return !end.Before(r.Start) && !r.End.Before(start)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// lastSecond is the 23:59:59 instant of the day before next.
func lastSecond(next time.Time) time.Time {
	return next.Add(-time.Second)
}

// MonthRange covers the whole calendar month of t, from the first day
// 00:00:00 through the last day 23:59:59 in t's location.
func MonthRange(t time.Time) Range {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Range{Start: first, End: lastSecond(first.AddDate(0, 1, 0))}
}

// WeekRange covers the seven days containing t, starting on weekStart.
func WeekRange(t time.Time, weekStart time.Weekday) Range {
	day := startOfDay(t)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	first := day.AddDate(0, 0, -offset)
	return Range{Start: first, End: lastSecond(first.AddDate(0, 0, 7))}
}

// DayRange covers the single day of t.
func DayRange(t time.Time) Range {
	first := startOfDay(t)
	return Range{Start: first, End: lastSecond(first.AddDate(0, 0, 1))}
}
