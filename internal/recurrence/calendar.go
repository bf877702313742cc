package recurrence

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/models"
)

// Calendar expands series with calendar-exact arithmetic. Week repeats fire
// on every weekday in the mask, month repeats on MonthDay, year repeats on
// Month/Day; dates that do not exist in a period (Feb 30) are skipped.
// Index n is the n-th date the rule produces at or after the anchor.
type Calendar struct {
	// MaxIterations bounds how far a series is walked for one call.
	MaxIterations int
}

func NewCalendar() Calendar {
	return Calendar{MaxIterations: constants.MaxCalendarIterations}
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// buildRule translates a repeat config into an rrule. End conditions are
// applied by the callers, not by the rule.
func buildRule(anchor time.Time, repeat models.RepeatConfig) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Dtstart:  anchor,
		Interval: repeat.Every,
	}
	switch repeat.Unit {
	case models.RepeatDay:
		opt.Freq = rrule.DAILY
	case models.RepeatWeek:
		opt.Freq = rrule.WEEKLY
		for _, wd := range repeat.WeekDays.Weekdays() {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[wd])
		}
	case models.RepeatMonth:
		opt.Freq = rrule.MONTHLY
		if repeat.MonthDay > 0 {
			opt.Bymonthday = []int{repeat.MonthDay}
		}
	case models.RepeatYear:
		opt.Freq = rrule.YEARLY
		if repeat.Month > 0 {
			opt.Bymonth = []int{repeat.Month}
		}
		if repeat.Day > 0 {
			opt.Bymonthday = []int{repeat.Day}
		}
	}
	return rrule.NewRRule(opt)
}

func (c Calendar) limit() int {
	if c.MaxIterations <= 0 {
		return constants.MaxCalendarIterations
	}
	return c.MaxIterations
}

// walk calls fn for each occurrence start in order with its index until fn
// returns false, the end condition is reached or the iteration cap is hit.
func (c Calendar) walk(anchor time.Time, repeat models.RepeatConfig, end models.EndConfig, fn func(index int, at time.Time) bool) {
	r, err := buildRule(anchor, repeat)
	if err != nil {
		logger.Error("Failed to build recurrence rule", "unit", repeat.Unit, "every", repeat.Every, "error", err)
		return
	}

	next := r.Iterator()
	for index := 0; index < c.limit(); index++ {
		at, ok := next()
		if !ok || endsBefore(end, index, at) {
			return
		}
		if !fn(index, at) {
			return
		}
	}
	logger.Warn("Recurrence walk hit iteration cap", "cap", c.limit(), "unit", repeat.Unit)
}

// IndexForInstant counts the occurrences strictly before instant, which
// matches the ceil formula of the fixed stride.
func (c Calendar) IndexForInstant(anchor time.Time, repeat models.RepeatConfig, end models.EndConfig, instant time.Time) int {
	if end.Type == models.EndUntil && instant.After(end.Until) {
		return NoOccurrence
	}

	index := 0
	c.walk(anchor, repeat, models.Never(), func(i int, at time.Time) bool {
		if !at.Before(instant) {
			return false
		}
		index = i + 1
		return end.Type != models.EndCount || index < end.Count
	})

	if end.Type == models.EndCount && index >= end.Count {
		return NoOccurrence
	}
	return index
}

func (c Calendar) Expand(rep models.RepeatingActivity, count int) []models.Occurrence {
	return c.ExpandFrom(rep, 0, count)
}

func (c Calendar) ExpandFrom(rep models.RepeatingActivity, start, count int) []models.Occurrence {
	out := []models.Occurrence{}
	if count <= 0 || start < 0 {
		return out
	}
	c.walk(rep.Template.At, rep.Repeat, rep.End, func(index int, at time.Time) bool {
		if index < start {
			return true
		}
		out = append(out, newOccurrence(rep.Template, index, at, len(out)))
		return len(out) < count
	})
	return out
}

func (c Calendar) ExpandWindow(rep models.RepeatingActivity, from, until time.Time) ([]models.Occurrence, bool) {
	out := []models.Occurrence{}
	truncated := false
	if !until.After(from) {
		return out, false
	}
	c.walk(rep.Template.At, rep.Repeat, rep.End, func(index int, at time.Time) bool {
		if at.Before(from) {
			return true
		}
		if !at.Before(until) {
			return false
		}
		if len(out) == constants.MaxWindowOccurrences {
			truncated = true
			return false
		}
		out = append(out, newOccurrence(rep.Template, index, at, len(out)))
		return true
	})
	return out, truncated
}

func (c Calendar) OccurrenceAt(rep models.RepeatingActivity, index int) (time.Time, bool) {
	var found time.Time
	ok := false
	if index < 0 {
		return found, false
	}
	c.walk(rep.Template.At, rep.Repeat, rep.End, func(i int, at time.Time) bool {
		if i == index {
			found, ok = at, true
			return false
		}
		return true
	})
	return found, ok
}
