package recurrence

import (
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
)

// ExpandOccurrences produces up to count occurrences starting at index 0.
// Expansion stops early at the first occurrence that violates the end
// condition. The exceptions map is not consulted; see ApplyExceptions.
func ExpandOccurrences(rep models.RepeatingActivity, count int) []models.Occurrence {
	return ExpandFrom(rep, 0, count)
}

// ExpandFrom produces up to count occurrences starting at index start.
func ExpandFrom(rep models.RepeatingActivity, start, count int) []models.Occurrence {
	if count <= 0 || start < 0 || StrideMillis(rep.Repeat) <= 0 {
		return []models.Occurrence{}
	}

	out := make([]models.Occurrence, 0, min(count, constants.MaxWindowOccurrences))
	for index := start; index < start+count; index++ {
		at, ok := OccurrenceAt(rep.Template.At, rep.Repeat, index)
		if !ok || endsBefore(rep.End, index, at) {
			break
		}
		out = append(out, newOccurrence(rep.Template, index, at, len(out)))
	}
	return out
}

// ExpandWindow expands the occurrences whose start falls within [from, until).
// The first candidate index is computed directly so unbounded series are
// never walked from the beginning. At most constants.MaxWindowOccurrences are
// returned; truncated reports whether that cap cut the window short.
func ExpandWindow(rep models.RepeatingActivity, from, until time.Time) (occurrences []models.Occurrence, truncated bool) {
	occurrences = []models.Occurrence{}
	stride := StrideMillis(rep.Repeat)
	if stride <= 0 || !until.After(from) {
		return occurrences, false
	}

	first := ceilDiv(from.UnixMilli()-rep.Template.At.UnixMilli(), stride)
	if first < 0 {
		first = 0
	}

	for index := int(first); ; index++ {
		at, ok := OccurrenceAt(rep.Template.At, rep.Repeat, index)
		if !ok || !at.Before(until) || endsBefore(rep.End, index, at) {
			return occurrences, false
		}
		if len(occurrences) == constants.MaxWindowOccurrences {
			return occurrences, true
		}
		occurrences = append(occurrences, newOccurrence(rep.Template, index, at, len(occurrences)))
	}
}

// endsBefore reports whether the occurrence at `at`, preceded by `produced`
// others in the series, lies past the end condition.
func endsBefore(end models.EndConfig, produced int, at time.Time) bool {
	switch end.Type {
	case models.EndCount:
		return produced+1 > end.Count
	case models.EndUntil:
		return !at.Before(end.Until)
	default:
		return false
	}
}

func newOccurrence(template models.ActivityTemplate, index int, at time.Time, n int) models.Occurrence {
	activity := template.Clone()
	activity.At = at
	return models.Occurrence{
		ID:       virtualID(n),
		Index:    index,
		Activity: activity,
	}
}

func virtualID(n int) string {
	return fmt.Sprintf("%s%d", constants.VirtualIDPrefix, n)
}
