// Package recurrence maps between wall-clock instants and occurrence indices
// of a repeating activity and expands repeat rules into concrete occurrences.
package recurrence

import (
	"math"
	"time"

	"github.com/julianstephens/cadence/internal/models"
)

// Nominal unit lengths. Months and years are approximated as 30 and 365
// days; use Calendar for calendar-exact arithmetic.
const (
	DayMillis   int64 = 86_400_000
	WeekMillis  int64 = 7 * DayMillis
	MonthMillis int64 = 30 * DayMillis
	YearMillis  int64 = 365 * DayMillis
)

// NoOccurrence is returned when an instant lies past the end of a series.
const NoOccurrence = -1

// UnitToMillis returns the nominal length of one repeat unit.
func UnitToMillis(unit models.RepeatUnit) int64 {
	switch unit {
	case models.RepeatDay:
		return DayMillis
	case models.RepeatWeek:
		return WeekMillis
	case models.RepeatMonth:
		return MonthMillis
	case models.RepeatYear:
		return YearMillis
	default:
		return 0
	}
}

// StrideMillis is the distance between two consecutive occurrences.
func StrideMillis(repeat models.RepeatConfig) int64 {
	return int64(repeat.Every) * UnitToMillis(repeat.Unit)
}

// IndexForInstant returns the index of the occurrence an instant falls into:
// ceil((instant - anchor) / stride), clamped to 0 for instants before the
// anchor. It returns NoOccurrence when the instant is past an until end or
// the index is past a count end. repeat.Every must be at least 1.
func IndexForInstant(anchor time.Time, repeat models.RepeatConfig, end models.EndConfig, instant time.Time) int {
	if end.Type == models.EndUntil && instant.After(end.Until) {
		return NoOccurrence
	}

	stride := StrideMillis(repeat)
	if stride <= 0 {
		return NoOccurrence
	}

	index := ceilDiv(instant.UnixMilli()-anchor.UnixMilli(), stride)
	if index < 0 {
		index = 0
	}

	if end.Type == models.EndCount && index >= int64(end.Count) {
		return NoOccurrence
	}
	return int(index)
}

// OccurrenceAt returns the nominal start of the occurrence at index. The
// offset is applied as whole UTC days plus a millisecond remainder, so it
// never passes through a time.Duration (which tops out near 292 years). ok
// is false when index strides do not fit in int64 milliseconds.
func OccurrenceAt(anchor time.Time, repeat models.RepeatConfig, index int) (at time.Time, ok bool) {
	offset, ok := offsetMillis(repeat, index)
	if !ok {
		return time.Time{}, false
	}
	days, rem := offset/DayMillis, offset%DayMillis
	at = anchor.UTC().AddDate(0, 0, int(days)).Add(time.Duration(rem) * time.Millisecond)
	return at.In(anchor.Location()), true
}

// offsetMillis multiplies index by the stride, reporting int64 overflow.
func offsetMillis(repeat models.RepeatConfig, index int) (int64, bool) {
	stride := StrideMillis(repeat)
	if index < 0 || stride <= 0 {
		return 0, index == 0
	}
	if int64(index) > math.MaxInt64/stride {
		return 0, false
	}
	return int64(index) * stride, true
}

// ceilDiv divides rounding toward positive infinity; b must be positive.
func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a > 0 {
		q++
	}
	return q
}
