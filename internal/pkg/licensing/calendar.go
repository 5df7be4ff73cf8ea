package licensing

import (
	"time"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
)

// Calendar evaluates schedule dates in a single billing time zone so that
// "midnight" and "day of month" mean the same thing for every license.
type Calendar struct {
	loc *time.Location
}

// Period is a coverage end together with the date the next payment is due.
type Period struct {
	EndDate        time.Time
	NextPaymentDue time.Time
}

func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

func (c Calendar) Location() *time.Location {
	return c.loc
}

// DayStart returns midnight of t's calendar day in the billing zone.
func (c Calendar) DayStart(t time.Time) time.Time {
	l := t.In(c.loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, c.loc)
}

func (c Calendar) AddDays(t time.Time, days int) time.Time {
	return c.DayStart(t).AddDate(0, 0, days)
}

// DateKey formats t as YYYY-MM-DD in the billing zone.
func (c Calendar) DateKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// DaysInMonth returns the number of days of t's month.
func (c Calendar) DaysInMonth(t time.Time) int {
	l := t.In(c.loc)
	return time.Date(l.Year(), l.Month()+1, 0, 0, 0, 0, 0, c.loc).Day()
}

// addMonths moves t by n months, clamping the day to the target month's end
// (Jan 31 + 1 month = Feb 28/29).
func (c Calendar) addMonths(t time.Time, n int) time.Time {
	l := c.DayStart(t)
	first := time.Date(l.Year(), l.Month()+time.Month(n), 1, 0, 0, 0, 0, c.loc)
	day := l.Day()
	if last := c.DaysInMonth(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, c.loc)
}

// addFrequency moves t by one billing unit.
func (c Calendar) addFrequency(t time.Time, frequency string) time.Time {
	if frequency == models.FrequencyAnnual {
		return c.addMonths(t, 12)
	}
	return c.addMonths(t, 1)
}

// ComputeNextPaymentFromSchedule returns the anchor due date for fixed-anchor
// modes and nil for manual schedules.
func (c Calendar) ComputeNextPaymentFromSchedule(mode string, ref time.Time) *time.Time {
	r := c.DayStart(ref)
	var due time.Time
	switch mode {
	case models.ScheduleMonthlyFirst:
		due = time.Date(r.Year(), r.Month()+1, 1, 0, 0, 0, 0, c.loc)
	case models.ScheduleAnnualJan5:
		jan5 := time.Date(r.Year(), time.January, 5, 0, 0, 0, 0, c.loc)
		if r.Before(jan5) {
			due = jan5
		} else {
			due = jan5.AddDate(1, 0, 0)
		}
	default:
		return nil
	}
	return &due
}

// AnchorPeriod computes the fixed-anchor period for ref. ok is false for
// manual schedules.
func (c Calendar) AnchorPeriod(mode string, ref time.Time) (Period, bool) {
	due := c.ComputeNextPaymentFromSchedule(mode, ref)
	if due == nil {
		return Period{}, false
	}
	return Period{EndDate: due.AddDate(0, 0, -1), NextPaymentDue: *due}, true
}

// CoverageEnd is the last covered day of a manual period starting at start.
func (c Calendar) CoverageEnd(start time.Time, frequency string) time.Time {
	return c.addFrequency(c.DayStart(start), frequency).AddDate(0, 0, -1)
}

// ExtendPeriod returns the period following the license's current one.
func (c Calendar) ExtendPeriod(l *models.License) Period {
	if models.IsFixedAnchor(l.ScheduleMode) {
		ref := l.StartDate
		switch {
		case l.NextPaymentDue != nil:
			ref = *l.NextPaymentDue
		case l.EndDate != nil:
			ref = c.AddDays(*l.EndDate, 1)
		}
		p, _ := c.AnchorPeriod(l.ScheduleMode, ref)
		return p
	}

	nextStart := c.DayStart(l.StartDate)
	if l.EndDate != nil {
		nextStart = c.AddDays(*l.EndDate, 1)
	}
	end := c.CoverageEnd(nextStart, l.Frequency)
	return Period{EndDate: end, NextPaymentDue: end}
}

// PeriodStart returns the first day of the period ending at l.EndDate.
func (c Calendar) PeriodStart(l *models.License) *time.Time {
	if l.EndDate == nil {
		s := c.DayStart(l.StartDate)
		return &s
	}
	end := c.DayStart(*l.EndDate)
	var start time.Time
	switch l.ScheduleMode {
	case models.ScheduleMonthlyFirst:
		start = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, c.loc)
	case models.ScheduleAnnualJan5:
		start = time.Date(end.Year()-1, time.January, 5, 0, 0, 0, 0, c.loc)
	default:
		start = c.addMonthsBack(end.AddDate(0, 0, 1), l.Frequency)
	}
	if start.Before(c.DayStart(l.StartDate)) {
		start = c.DayStart(l.StartDate)
	}
	return &start
}

func (c Calendar) addMonthsBack(t time.Time, frequency string) time.Time {
	if frequency == models.FrequencyAnnual {
		return c.addMonths(t, -12)
	}
	return c.addMonths(t, -1)
}
