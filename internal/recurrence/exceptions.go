package recurrence

import (
	"github.com/julianstephens/cadence/internal/models"
)

// ApplyExceptions resolves per-index exceptions against raw expansion
// output. Skipped occurrences are dropped; overridden ones take the
// replacement template but keep their index and id. The input slice is
// not modified.
func ApplyExceptions(occurrences []models.Occurrence, exceptions map[int]models.ExceptionRecord) []models.Occurrence {
	out := make([]models.Occurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		rec, ok := exceptions[occ.Index]
		if !ok {
			out = append(out, occ)
			continue
		}
		switch rec.Kind {
		case models.ExceptionSkip:
			continue
		case models.ExceptionOverride:
			if rec.Template != nil {
				occ.Activity = rec.Template.Clone()
				occ.Overridden = true
			}
		}
		out = append(out, occ)
	}
	return out
}
