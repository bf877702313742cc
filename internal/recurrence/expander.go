package recurrence

import (
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
)

// Expander resolves indices and expands series under one stride policy.
type Expander interface {
	IndexForInstant(anchor time.Time, repeat models.RepeatConfig, end models.EndConfig, instant time.Time) int
	Expand(rep models.RepeatingActivity, count int) []models.Occurrence
	ExpandFrom(rep models.RepeatingActivity, start, count int) []models.Occurrence
	ExpandWindow(rep models.RepeatingActivity, from, until time.Time) ([]models.Occurrence, bool)
	// OccurrenceAt returns the start of the occurrence at index, or false if
	// the series ends before it.
	OccurrenceAt(rep models.RepeatingActivity, index int) (time.Time, bool)
}

// FixedStride expands series with nominal unit lengths (30-day months,
// 365-day years).
type FixedStride struct{}

func (FixedStride) IndexForInstant(anchor time.Time, repeat models.RepeatConfig, end models.EndConfig, instant time.Time) int {
	return IndexForInstant(anchor, repeat, end, instant)
}

func (FixedStride) Expand(rep models.RepeatingActivity, count int) []models.Occurrence {
	return ExpandOccurrences(rep, count)
}

func (FixedStride) ExpandFrom(rep models.RepeatingActivity, start, count int) []models.Occurrence {
	return ExpandFrom(rep, start, count)
}

func (FixedStride) ExpandWindow(rep models.RepeatingActivity, from, until time.Time) ([]models.Occurrence, bool) {
	return ExpandWindow(rep, from, until)
}

func (FixedStride) OccurrenceAt(rep models.RepeatingActivity, index int) (time.Time, bool) {
	if index < 0 {
		return time.Time{}, false
	}
	at, ok := OccurrenceAt(rep.Template.At, rep.Repeat, index)
	if !ok || endsBefore(rep.End, index, at) {
		return time.Time{}, false
	}
	return at, true
}

// ForMode returns the expander for a configured stride mode.
func ForMode(mode string) (Expander, error) {
	switch mode {
	case "", constants.StrideFixed:
		return FixedStride{}, nil
	case constants.StrideCalendar:
		return NewCalendar(), nil
	default:
		return nil, fmt.Errorf("unknown stride mode %q (expected %s or %s)", mode, constants.StrideFixed, constants.StrideCalendar)
	}
}
