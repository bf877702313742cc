package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/models"
)

// ActivityRow is the flat column layout shared by the SQL stores.
type ActivityRow struct {
	ID          string
	Kind        string
	Template    string
	RepeatEvery int
	RepeatUnit  string
	RepeatExtra int
	EndType     string
	EndCount    int
	EndUntil    string
	CreatedAt   string
	DeletedAt   *string
}

// EncodeRepeat packs the variant payload of a repeat config into a single
// integer: the weekday mask for week, the day of month for month and
// month*100+day for year.
func EncodeRepeat(r models.RepeatConfig) (unit string, every int, extra int) {
	switch r.Unit {
	case models.RepeatWeek:
		extra = int(r.WeekDays)
	case models.RepeatMonth:
		extra = r.MonthDay
	case models.RepeatYear:
		extra = r.Month*100 + r.Day
	}
	return string(r.Unit), r.Every, extra
}

// DecodeRepeat reverses EncodeRepeat.
func DecodeRepeat(unit string, every int, extra int) models.RepeatConfig {
	r := models.RepeatConfig{Every: every, Unit: models.RepeatUnit(unit)}
	switch r.Unit {
	case models.RepeatWeek:
		r.WeekDays = models.WeekdayMask(extra)
	case models.RepeatMonth:
		r.MonthDay = extra
	case models.RepeatYear:
		r.Month = extra / 100
		r.Day = extra % 100
	}
	return r
}

// ToRow flattens a definition. Single definitions keep zero repeat columns.
func ToRow(def models.ActivityDefinition) (ActivityRow, error) {
	row := ActivityRow{
		ID:        def.ID,
		Kind:      string(def.Kind),
		EndType:   string(models.EndNever),
		CreatedAt: def.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	template := def.Template()
	payload, err := json.Marshal(template)
	if err != nil {
		return ActivityRow{}, fmt.Errorf("failed to encode activity template: %w", err)
	}
	row.Template = string(payload)

	if def.IsRepeating() {
		row.RepeatUnit, row.RepeatEvery, row.RepeatExtra = EncodeRepeat(def.Repeating.Repeat)
		row.EndType = string(def.Repeating.End.Type)
		row.EndCount = def.Repeating.End.Count
		if def.Repeating.End.Type == models.EndUntil {
			row.EndUntil = def.Repeating.End.Until.UTC().Format(time.RFC3339Nano)
		}
	}

	if def.DeletedAt != nil {
		s := def.DeletedAt.UTC().Format(time.RFC3339Nano)
		row.DeletedAt = &s
	}
	return row, nil
}

// FromRow rebuilds a definition without its exceptions or completions.
func FromRow(row ActivityRow) (models.ActivityDefinition, error) {
	var template models.ActivityTemplate
	if err := json.Unmarshal([]byte(row.Template), &template); err != nil {
		return models.ActivityDefinition{}, fmt.Errorf("failed to decode template of activity %s: %w", row.ID, err)
	}

	def := models.ActivityDefinition{
		ID:   row.ID,
		Kind: models.DefinitionKind(row.Kind),
	}
	if row.CreatedAt != "" {
		created, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
		if err != nil {
			return models.ActivityDefinition{}, fmt.Errorf("invalid created_at for activity %s: %w", row.ID, err)
		}
		def.CreatedAt = created
	}
	if row.DeletedAt != nil {
		deleted, err := time.Parse(time.RFC3339Nano, *row.DeletedAt)
		if err != nil {
			return models.ActivityDefinition{}, fmt.Errorf("invalid deleted_at for activity %s: %w", row.ID, err)
		}
		def.DeletedAt = &deleted
	}

	if def.Kind != models.DefinitionRepeating {
		def.Single = &template
		return def, nil
	}

	end := models.EndConfig{Type: models.EndType(row.EndType), Count: row.EndCount}
	if end.Type == models.EndUntil {
		until, err := time.Parse(time.RFC3339Nano, row.EndUntil)
		if err != nil {
			return models.ActivityDefinition{}, fmt.Errorf("invalid end_until for activity %s: %w", row.ID, err)
		}
		end.Until = until
	}

	def.Repeating = &models.RepeatingActivity{
		Template:   template,
		Repeat:     DecodeRepeat(row.RepeatUnit, row.RepeatEvery, row.RepeatExtra),
		End:        end,
		Exceptions: map[int]models.ExceptionRecord{},
	}
	return def, nil
}

// EncodeException serializes an override template, or returns "" for skips.
func EncodeException(rec models.ExceptionRecord) (string, error) {
	if rec.Template == nil {
		return "", nil
	}
	payload, err := json.Marshal(rec.Template)
	if err != nil {
		return "", fmt.Errorf("failed to encode exception template: %w", err)
	}
	return string(payload), nil
}

// DecodeException rebuilds an exception record from its columns.
func DecodeException(id, kind, template string) (models.ExceptionRecord, error) {
	rec := models.ExceptionRecord{ID: id, Kind: models.ExceptionKind(kind)}
	if template == "" {
		return rec, nil
	}
	var t models.ActivityTemplate
	if err := json.Unmarshal([]byte(template), &t); err != nil {
		return rec, fmt.Errorf("failed to decode exception template %s: %w", id, err)
	}
	rec.Template = &t
	return rec, nil
}

// EncodeCompletionExceptions stores the exception set as a sorted JSON array.
func EncodeCompletionExceptions(state models.ActivityCompletions) (string, error) {
	payload, err := json.Marshal(state.SortedExceptions())
	if err != nil {
		return "", fmt.Errorf("failed to encode completion exceptions: %w", err)
	}
	return string(payload), nil
}

// DecodeCompletions rebuilds completions from the frontier column and the
// JSON exception array.
func DecodeCompletions(latest int, exceptions string) (models.ActivityCompletions, error) {
	state := models.NewCompletions()
	state.LatestFinishedIndex = latest
	if exceptions == "" {
		return state, nil
	}
	var indices []int
	if err := json.Unmarshal([]byte(exceptions), &indices); err != nil {
		return state, fmt.Errorf("failed to decode completion exceptions: %w", err)
	}
	for _, i := range indices {
		state.Exceptions[i] = struct{}{}
	}
	return state, nil
}
