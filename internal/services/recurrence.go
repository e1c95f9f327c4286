package services

// Recurring expenses step forward with one Schedule per frequency. Monthly
// and yearly series stay anchored to the start day and clamp it to the end
// of shorter months.

import (
	"fmt"
	"time"

	"expensetool/internal/core"
)

// Schedule is the strategy interface for stepping a recurring series.
type Schedule interface {
	// After returns the first occurrence of the series starting at start
	// that falls on a calendar date strictly after t.
	After(start, t time.Time) time.Time
}

type DailySchedule struct{}

func (DailySchedule) After(start, t time.Time) time.Time {
	start, t = dateOnly(start), dateOnly(t)
	if t.Before(start) {
		return start
	}
	return start.AddDate(0, 0, daysBetween(start, t)+1)
}

type WeeklySchedule struct{}

func (WeeklySchedule) After(start, t time.Time) time.Time {
	start, t = dateOnly(start), dateOnly(t)
	if t.Before(start) {
		return start
	}
	return start.AddDate(0, 0, (daysBetween(start, t)/7+1)*7)
}

type MonthlySchedule struct{}

func (MonthlySchedule) After(start, t time.Time) time.Time {
	return stepMonths(start, t, 1)
}

type YearlySchedule struct{}

func (YearlySchedule) After(start, t time.Time) time.Time {
	return stepMonths(start, t, 12)
}

var schedules = map[core.RepetitionTypes]Schedule{
	core.Daily:   DailySchedule{},
	core.Weekly:  WeeklySchedule{},
	core.Monthly: MonthlySchedule{},
	core.Yearly:  YearlySchedule{},
}

// GetSchedule returns the schedule for a repetition type.
func GetSchedule(frequency core.RepetitionTypes) (Schedule, error) {
	s, ok := schedules[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", frequency)
	}
	return s, nil
}

// NextDue returns the occurrence that follows e. It reports false for
// expenses that are not recurring or have no frequency.
func NextDue(e core.Expense) (time.Time, bool) {
	if !e.IsRecurring || e.RecurringFrequency == "" {
		return time.Time{}, false
	}
	s, err := GetSchedule(e.RecurringFrequency)
	if err != nil {
		return time.Time{}, false
	}
	return s.After(e.Date, e.Date), true
}

// stepMonths finds the first anchored occurrence every step months after t.
func stepMonths(start, t time.Time, step int) time.Time {
	start, t = dateOnly(start), dateOnly(t)
	if t.Before(start) {
		return start
	}
	months := (t.Year()-start.Year())*12 + int(t.Month()) - int(start.Month())
	n := months / step * step
	next := addMonthsClamped(start, n)
	for !next.After(t) {
		n += step
		next = addMonthsClamped(start, n)
	}
	return next
}

func addMonthsClamped(start time.Time, n int) time.Time {
	m := int(start.Month()) - 1 + n
	y := start.Year() + m/12
	month := time.Month(m%12 + 1)
	lastDay := time.Date(y, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return time.Date(y, month, min(start.Day(), lastDay), 0, 0, 0, 0, time.UTC)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
