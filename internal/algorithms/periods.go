package algorithms

import (
	"errors"
	"time"

	"timetodo_backend/internal/models"
)

var ErrUnsupportedPeriod = errors.New("unsupported period type")

// Window - полуинтервал [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// PeriodWindow считает окно в часовом поясе date.
// daily - сутки, weekly - с понедельника 7 дней, monthly - с 1-го числа до 1-го числа следующего.
func PeriodWindow(date time.Time, period models.PeriodType) (Window, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	switch period {
	case models.PeriodDaily:
		return Window{Start: day, End: day.AddDate(0, 0, 1)}, nil
	case models.PeriodWeekly:
		// time.Weekday: воскресенье = 0
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return Window{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case models.PeriodMonthly:
		start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
		return Window{Start: start, End: start.AddDate(0, 1, 0)}, nil
	}
	return Window{}, ErrUnsupportedPeriod
}

// LastDays - окно последних n суток до now
func LastDays(now time.Time, n int) Window {
	return Window{Start: now.AddDate(0, 0, -n), End: now}
}
