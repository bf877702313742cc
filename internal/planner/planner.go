// Package planner is the application service over storage: it creates
// definitions, expands them into occurrences with exceptions applied and
// records completions through versioned compare-and-swap writes.
package planner

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/cadence/internal/completions"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/storage"
	"github.com/julianstephens/cadence/internal/validation"
)

var (
	ErrNotRepeating = errors.New("activity is not repeating")
	ErrOutOfRange   = errors.New("occurrence index is outside the series")
)

// Options tune a Service. Zero values select the defaults.
type Options struct {
	Expander   recurrence.Expander
	MaxRetries int
	RetryDelay time.Duration
	// Clock stamps CreatedAt on new definitions.
	Clock func() time.Time
}

type Service struct {
	store      storage.Provider
	expander   recurrence.Expander
	validator  *validation.Validator
	maxRetries int
	retryDelay time.Duration
	clock      func() time.Time
}

func New(store storage.Provider, opts Options) *Service {
	s := &Service{
		store:      store,
		expander:   opts.Expander,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		clock:      opts.Clock,
	}
	if s.expander == nil {
		s.expander = recurrence.FixedStride{}
	}
	if s.maxRetries <= 0 {
		s.maxRetries = constants.DefaultMaxRetries
	}
	if s.retryDelay <= 0 {
		s.retryDelay = constants.RetryBaseDelay
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	s.validator = validation.New(s.expander)
	return s
}

func (s *Service) Validator() *validation.Validator {
	return s.validator
}

// OccurrenceView is an occurrence together with its completion status.
type OccurrenceView struct {
	models.Occurrence
	Completed bool `json:"completed"`
}

// AddSingle stores a one-off activity.
func (s *Service) AddSingle(template models.ActivityTemplate) (models.ActivityDefinition, error) {
	return s.AddActivity(models.ActivityDefinition{
		Kind:   models.DefinitionSingle,
		Single: &template,
	})
}

// AddRepeating stores a repeating activity anchored at template.At.
func (s *Service) AddRepeating(template models.ActivityTemplate, repeat models.RepeatConfig, end models.EndConfig) (models.ActivityDefinition, error) {
	return s.AddActivity(models.ActivityDefinition{
		Kind: models.DefinitionRepeating,
		Repeating: &models.RepeatingActivity{
			Template:   template,
			Repeat:     repeat,
			End:        end,
			Exceptions: map[int]models.ExceptionRecord{},
		},
	})
}

// AddActivity validates and stores a definition, assigning an id and
// creation time when missing.
func (s *Service) AddActivity(def models.ActivityDefinition) (models.ActivityDefinition, error) {
	if def.ID == "" {
		def.ID = uuid.New().String()
	}
	if def.CreatedAt.IsZero() {
		def.CreatedAt = s.clock().UTC()
	}
	if def.Repeating != nil && def.Repeating.Exceptions == nil {
		def.Repeating.Exceptions = map[int]models.ExceptionRecord{}
	}
	if err := s.validator.Definition(def); err != nil {
		return models.ActivityDefinition{}, fmt.Errorf("invalid activity: %w", err)
	}
	if err := s.store.AddActivity(def); err != nil {
		return models.ActivityDefinition{}, err
	}
	logger.Debug("Added activity", "id", def.ID, "kind", def.Kind, "name", def.Template().Name)
	return def, nil
}

func (s *Service) GetActivity(id string) (models.ActivityDefinition, error) {
	return s.store.GetActivity(id)
}

func (s *Service) ListActivities(includeDeleted bool) ([]models.ActivityDefinition, error) {
	if includeDeleted {
		return s.store.GetAllActivitiesIncludingDeleted()
	}
	return s.store.GetAllActivities()
}

func (s *Service) DeleteActivity(id string) error {
	if err := s.store.DeleteActivity(id); err != nil {
		return err
	}
	logger.Info("Deleted activity", "id", id)
	return nil
}

func (s *Service) RestoreActivity(id string) error {
	if err := s.store.RestoreActivity(id); err != nil {
		return err
	}
	logger.Info("Restored activity", "id", id)
	return nil
}

// IndexAt resolves the occurrence index an instant falls into, or
// recurrence.NoOccurrence past the end of the series.
func (s *Service) IndexAt(id string, instant time.Time) (int, error) {
	def, err := s.store.GetActivity(id)
	if err != nil {
		return 0, err
	}
	if !def.IsRepeating() {
		return 0, fmt.Errorf("%w: %s", ErrNotRepeating, id)
	}
	rep := def.Repeating
	return s.expander.IndexForInstant(rep.Template.At, rep.Repeat, rep.End, instant), nil
}

// Occurrences lists the occurrences of one definition starting within
// [from, until), exceptions applied. truncated reports that the window
// exceeded constants.MaxWindowOccurrences.
func (s *Service) Occurrences(id string, from, until time.Time) (views []OccurrenceView, truncated bool, err error) {
	def, err := s.store.GetActivity(id)
	if err != nil {
		return nil, false, err
	}
	views, truncated = s.window(def, from, until)
	return views, truncated, nil
}

func (s *Service) window(def models.ActivityDefinition, from, until time.Time) ([]OccurrenceView, bool) {
	if !def.IsRepeating() {
		if def.Single == nil || def.Single.At.Before(from) || !def.Single.At.Before(until) {
			return []OccurrenceView{}, false
		}
		return s.views(def, []models.Occurrence{singleOccurrence(def)}), false
	}
	occs, truncated := s.expander.ExpandWindow(*def.Repeating, from, until)
	occs = recurrence.ApplyExceptions(occs, def.Repeating.Exceptions)
	return s.views(def, occs), truncated
}

// Upcoming returns up to count occurrences starting at or after now.
func (s *Service) Upcoming(id string, now time.Time, count int) ([]OccurrenceView, error) {
	def, err := s.store.GetActivity(id)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return []OccurrenceView{}, nil
	}
	if !def.IsRepeating() {
		if def.Single == nil || def.Single.At.Before(now) {
			return []OccurrenceView{}, nil
		}
		return s.views(def, []models.Occurrence{singleOccurrence(def)}), nil
	}

	rep := def.Repeating
	start := s.expander.IndexForInstant(rep.Template.At, rep.Repeat, rep.End, now)
	if start == recurrence.NoOccurrence {
		return []OccurrenceView{}, nil
	}
	// Skipped occurrences are dropped, so over-fetch by the exception count.
	occs := s.expander.ExpandFrom(*rep, start, count+len(rep.Exceptions))
	occs = recurrence.ApplyExceptions(occs, rep.Exceptions)
	if len(occs) > count {
		occs = occs[:count]
	}
	return s.views(def, occs), nil
}

func singleOccurrence(def models.ActivityDefinition) models.Occurrence {
	return models.Occurrence{
		ID:           constants.VirtualIDPrefix + "0",
		DefinitionID: def.ID,
		Index:        0,
		Activity:     def.Single.Clone(),
	}
}

func (s *Service) views(def models.ActivityDefinition, occs []models.Occurrence) []OccurrenceView {
	state := completions.FromDefinition(def)
	out := make([]OccurrenceView, 0, len(occs))
	for _, occ := range occs {
		occ.DefinitionID = def.ID
		out = append(out, OccurrenceView{
			Occurrence: occ,
			Completed:  completions.IsCompleted(state, occ.Index),
		})
	}
	return out
}

// AgendaItem is an occurrence in a multi-activity agenda.
type AgendaItem struct {
	OccurrenceView
	Repeating bool `json:"repeating"`
}

// Agenda lists the occurrences of every active definition starting within
// [from, until), ordered by start time, then definition id and index.
func (s *Service) Agenda(from, until time.Time) (items []AgendaItem, truncated bool, err error) {
	defs, err := s.store.GetAllActivities()
	if err != nil {
		return nil, false, err
	}

	items = []AgendaItem{}
	for _, def := range defs {
		views, cut := s.window(def, from, until)
		truncated = truncated || cut
		for _, v := range views {
			items = append(items, AgendaItem{OccurrenceView: v, Repeating: def.IsRepeating()})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Activity.At.Equal(b.Activity.At) {
			return a.Activity.At.Before(b.Activity.At)
		}
		if a.DefinitionID != b.DefinitionID {
			return a.DefinitionID < b.DefinitionID
		}
		return a.Index < b.Index
	})
	for i := range items {
		items[i].ID = fmt.Sprintf("%s%d", constants.VirtualIDPrefix, i)
	}
	return items, truncated, nil
}
