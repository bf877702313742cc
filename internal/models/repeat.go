package models

import (
	"time"
)

type RepeatUnit string

const (
	RepeatDay   RepeatUnit = "day"
	RepeatWeek  RepeatUnit = "week"
	RepeatMonth RepeatUnit = "month"
	RepeatYear  RepeatUnit = "year"
)

// WeekdayMask holds one bit per weekday, bit 0 is Sunday and bit 6 Saturday.
type WeekdayMask uint8

const AllWeekdays WeekdayMask = 0x7f

// NewWeekdayMask builds a mask from a list of weekdays.
func NewWeekdayMask(days ...time.Weekday) WeekdayMask {
	var m WeekdayMask
	for _, d := range days {
		m |= 1 << uint(d)
	}
	return m
}

// Has reports whether the weekday bit is set.
func (m WeekdayMask) Has(d time.Weekday) bool {
	return m&(1<<uint(d)) != 0
}

// Weekdays lists the set weekdays in Sunday-first order.
func (m WeekdayMask) Weekdays() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if m.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// RepeatConfig is "every N units". Only the fields of the selected unit
// are meaningful: WeekDays for week, MonthDay for month, Month and Day for
// year. Day repeats carry no extra data.
type RepeatConfig struct {
	Every    int         `json:"every" validate:"gte=1"`
	Unit     RepeatUnit  `json:"unit" validate:"oneof=day week month year"`
	WeekDays WeekdayMask `json:"week_days,omitempty"`
	MonthDay int         `json:"month_day,omitempty"`
	Month    int         `json:"month,omitempty"`
	Day      int         `json:"day,omitempty"`
}

type EndType string

const (
	EndNever EndType = "never"
	EndCount EndType = "count"
	EndUntil EndType = "until"
)

// EndConfig bounds a series. Count is the inclusive total number of
// occurrences; Until is the instant after which no occurrence exists.
type EndConfig struct {
	Type  EndType   `json:"type" validate:"oneof=never count until"`
	Count int       `json:"count,omitempty"`
	Until time.Time `json:"until,omitempty"`
}

// Never is the unbounded end condition.
func Never() EndConfig { return EndConfig{Type: EndNever} }

// AfterCount ends a series after n occurrences.
func AfterCount(n int) EndConfig { return EndConfig{Type: EndCount, Count: n} }

// Until ends a series at the given instant.
func Until(t time.Time) EndConfig { return EndConfig{Type: EndUntil, Until: t} }
