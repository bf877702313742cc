package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictInvalidDefinition   ConflictType = "invalid_definition"
	ConflictDuplicateName       ConflictType = "duplicate_name"
	ConflictExceptionPastEnd    ConflictType = "exception_past_end"
	ConflictInvalidException    ConflictType = "invalid_exception"
	ConflictCompletionsPastEnd  ConflictType = "completions_past_end"
	ConflictCompletionsNegative ConflictType = "completions_negative_exception"
)

// Conflict is one problem found in stored definitions.
type Conflict struct {
	Type         ConflictType
	Description  string
	DefinitionID string
	Index        int // occurrence index, -1 when not applicable
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

func (vr *ValidationResult) add(c Conflict) {
	vr.Conflicts = append(vr.Conflicts, c)
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range vr.Conflicts {
		fmt.Fprintf(&b, "- [%s] %s\n", c.Type, c.Description)
	}
	return b.String()
}

// Validator checks definitions on write and reports conflicts on read.
type Validator struct {
	structs  *validator.Validate
	expander recurrence.Expander
}

// New creates a Validator that resolves series ends with expander, or the
// fixed stride when expander is nil.
func New(expander recurrence.Expander) *Validator {
	if expander == nil {
		expander = recurrence.FixedStride{}
	}
	return &Validator{
		structs:  validator.New(validator.WithRequiredStructEnabled()),
		expander: expander,
	}
}

// Template validates a single activity template.
func (v *Validator) Template(t models.ActivityTemplate) error {
	if err := v.structs.Struct(t); err != nil {
		return describe(err)
	}
	for _, o := range []*models.Offset{t.Deadline, t.Reminder, t.Start} {
		if o == nil {
			continue
		}
		if err := v.structs.Struct(o); err != nil {
			return describe(err)
		}
	}
	if t.Zone != "" {
		if _, err := utils.LoadLocation(t.Zone); err != nil {
			return err
		}
	}
	return nil
}

// Repeat enforces the per-unit payload rules of a repeat config.
func (v *Validator) Repeat(r models.RepeatConfig) error {
	if err := v.structs.Struct(r); err != nil {
		return describe(err)
	}
	switch r.Unit {
	case models.RepeatWeek:
		if r.WeekDays == 0 || r.WeekDays > models.AllWeekdays {
			return fmt.Errorf("weekly repeat needs at least one weekday, got mask %d", r.WeekDays)
		}
	case models.RepeatMonth:
		if r.MonthDay != 0 && (r.MonthDay < 1 || r.MonthDay > 31) {
			return fmt.Errorf("month day must be between 1 and 31, got %d", r.MonthDay)
		}
	case models.RepeatYear:
		if r.Month != 0 && (r.Month < 1 || r.Month > 12) {
			return fmt.Errorf("month must be between 1 and 12, got %d", r.Month)
		}
		if r.Day != 0 && (r.Day < 1 || r.Day > 31) {
			return fmt.Errorf("day must be between 1 and 31, got %d", r.Day)
		}
	}
	return nil
}

// End validates an end condition.
func (v *Validator) End(e models.EndConfig) error {
	if err := v.structs.Struct(e); err != nil {
		return describe(err)
	}
	switch e.Type {
	case models.EndCount:
		if e.Count < 1 {
			return fmt.Errorf("count end needs a count of at least 1, got %d", e.Count)
		}
	case models.EndUntil:
		if e.Until.IsZero() {
			return errors.New("until end needs an until time")
		}
	}
	return nil
}

// Exception validates an exception record.
func (v *Validator) Exception(rec models.ExceptionRecord) error {
	if err := v.structs.Struct(rec); err != nil {
		return describe(err)
	}
	if rec.Kind == models.ExceptionOverride {
		return v.Template(*rec.Template)
	}
	return nil
}

// Definition validates a definition before it is stored.
func (v *Validator) Definition(def models.ActivityDefinition) error {
	switch def.Kind {
	case models.DefinitionSingle:
		if def.Single == nil || def.Repeating != nil {
			return errors.New("single definition must carry exactly one template")
		}
		return v.Template(*def.Single)
	case models.DefinitionRepeating:
		if def.Repeating == nil || def.Single != nil {
			return errors.New("repeating definition must carry a repeat rule and no single template")
		}
		return errors.Join(
			v.Template(def.Repeating.Template),
			v.Repeat(def.Repeating.Repeat),
			v.End(def.Repeating.End),
		)
	default:
		return fmt.Errorf("unknown definition kind %q", def.Kind)
	}
}

// describe flattens validator errors into one readable message.
func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// ValidateDefinitions reports conflicts across stored definitions. Deleted
// definitions are ignored.
func (v *Validator) ValidateDefinitions(defs []models.ActivityDefinition) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	names := map[string][]string{}
	for _, def := range defs {
		if def.DeletedAt != nil {
			continue
		}
		if name := def.Template().Name; name != "" {
			names[name] = append(names[name], def.ID)
		}

		if err := v.Definition(def); err != nil {
			result.add(Conflict{
				Type:         ConflictInvalidDefinition,
				Description:  fmt.Sprintf("Activity %s is invalid: %v", def.ID, err),
				DefinitionID: def.ID,
				Index:        -1,
			})
			continue
		}
		if def.IsRepeating() {
			v.checkExceptions(def, &result)
		}
		v.checkCompletions(def, &result)
	}

	sortedNames := make([]string, 0, len(names))
	for name := range names {
		sortedNames = append(sortedNames, name)
	}
	sort.Strings(sortedNames)
	for _, name := range sortedNames {
		if ids := names[name]; len(ids) > 1 {
			result.add(Conflict{
				Type:        ConflictDuplicateName,
				Description: fmt.Sprintf("Duplicate activity name: %q (IDs: %v)", name, ids),
				Index:       -1,
			})
		}
	}
	return result
}

func (v *Validator) checkExceptions(def models.ActivityDefinition, result *ValidationResult) {
	indices := make([]int, 0, len(def.Repeating.Exceptions))
	for i := range def.Repeating.Exceptions {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	for _, index := range indices {
		rec := def.Repeating.Exceptions[index]
		if err := v.Exception(rec); err != nil {
			result.add(Conflict{
				Type:         ConflictInvalidException,
				Description:  fmt.Sprintf("Exception %s on occurrence %d of %s is invalid: %v", rec.ID, index, def.ID, err),
				DefinitionID: def.ID,
				Index:        index,
			})
			continue
		}
		if _, ok := v.expander.OccurrenceAt(*def.Repeating, index); !ok {
			result.add(Conflict{
				Type:         ConflictExceptionPastEnd,
				Description:  fmt.Sprintf("Exception on occurrence %d of %s lies outside the series", index, def.ID),
				DefinitionID: def.ID,
				Index:        index,
			})
		}
	}
}

func (v *Validator) checkCompletions(def models.ActivityDefinition, result *ValidationResult) {
	if def.Completions == nil {
		return
	}
	state := def.Completions
	for _, i := range state.SortedExceptions() {
		if i < 0 {
			result.add(Conflict{
				Type:         ConflictCompletionsNegative,
				Description:  fmt.Sprintf("Completions of %s hold negative index %d", def.ID, i),
				DefinitionID: def.ID,
				Index:        i,
			})
		}
	}

	latest := state.LatestFinishedIndex
	if latest < 0 {
		return
	}
	pastEnd := false
	if def.IsRepeating() {
		_, ok := v.expander.OccurrenceAt(*def.Repeating, latest)
		pastEnd = !ok
	} else {
		pastEnd = latest > 0
	}
	if pastEnd {
		result.add(Conflict{
			Type:         ConflictCompletionsPastEnd,
			Description:  fmt.Sprintf("Completions of %s mark occurrence %d finished, past the end of the series", def.ID, latest),
			DefinitionID: def.ID,
			Index:        latest,
		})
	}
}
