// Package memory is an in-process storage.Provider used by tests and
// short-lived tooling.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/storage"
)

type completionsEntry struct {
	state   models.ActivityCompletions
	version int64
}

// Store implements storage.Provider using maps guarded by one mutex.
type Store struct {
	mu          sync.RWMutex
	activities  map[string]models.ActivityDefinition
	completions map[string]completionsEntry
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		activities:  make(map[string]models.ActivityDefinition),
		completions: make(map[string]completionsEntry),
	}
}

func (s *Store) Init() error  { return nil }
func (s *Store) Load() error  { return nil }
func (s *Store) Close() error { return nil }

func (s *Store) GetConfigPath() string { return ":memory:" }

// copyDefinition detaches a definition from the maps it is stored in.
func copyDefinition(def models.ActivityDefinition) models.ActivityDefinition {
	out := def
	out.Completions = nil
	if def.Single != nil {
		t := def.Single.Clone()
		out.Single = &t
	}
	if def.Repeating != nil {
		rep := *def.Repeating
		rep.Template = def.Repeating.Template.Clone()
		rep.Exceptions = make(map[int]models.ExceptionRecord, len(def.Repeating.Exceptions))
		for i, rec := range def.Repeating.Exceptions {
			if rec.Template != nil {
				t := rec.Template.Clone()
				rec.Template = &t
			}
			rep.Exceptions[i] = rec
		}
		out.Repeating = &rep
	}
	if def.DeletedAt != nil {
		d := *def.DeletedAt
		out.DeletedAt = &d
	}
	return out
}

func (s *Store) AddActivity(def models.ActivityDefinition) error {
	return s.UpdateActivity(def)
}

func (s *Store) UpdateActivity(def models.ActivityDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyDefinition(def)
	// Exceptions are owned by SetException/DeleteException once stored.
	if existing, ok := s.activities[def.ID]; ok && existing.Repeating != nil && stored.Repeating != nil {
		stored.Repeating.Exceptions = existing.Repeating.Exceptions
	}
	s.activities[def.ID] = stored
	return nil
}

func (s *Store) withState(def models.ActivityDefinition) models.ActivityDefinition {
	out := copyDefinition(def)
	if entry, ok := s.completions[def.ID]; ok {
		c := entry.state.Clone()
		out.Completions = &c
	}
	return out
}

func (s *Store) GetActivity(id string) (models.ActivityDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.activities[id]
	if !ok || def.DeletedAt != nil {
		return models.ActivityDefinition{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return s.withState(def), nil
}

func (s *Store) GetAllActivities() ([]models.ActivityDefinition, error) {
	return s.list(false)
}

func (s *Store) GetAllActivitiesIncludingDeleted() ([]models.ActivityDefinition, error) {
	return s.list(true)
}

func (s *Store) list(includeDeleted bool) ([]models.ActivityDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ActivityDefinition, 0, len(s.activities))
	for _, def := range s.activities {
		if def.DeletedAt != nil && !includeDeleted {
			continue
		}
		out = append(out, s.withState(def))
	}
	storage.SortDefinitions(out)
	return out, nil
}

func (s *Store) DeleteActivity(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.activities[id]
	if !ok || def.DeletedAt != nil {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	now := time.Now().UTC()
	def.DeletedAt = &now
	s.activities[id] = def
	return nil
}

func (s *Store) RestoreActivity(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.activities[id]
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if def.DeletedAt == nil {
		return fmt.Errorf("activity %s is not deleted", id)
	}
	def.DeletedAt = nil
	s.activities[id] = def
	return nil
}

func (s *Store) repeating(id string) (models.ActivityDefinition, error) {
	def, ok := s.activities[id]
	if !ok || def.DeletedAt != nil {
		return models.ActivityDefinition{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if def.Repeating == nil {
		return models.ActivityDefinition{}, fmt.Errorf("activity %s is not repeating", id)
	}
	return def, nil
}

func (s *Store) SetException(activityID string, index int, rec models.ExceptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, err := s.repeating(activityID)
	if err != nil {
		return err
	}
	if rec.Template != nil {
		t := rec.Template.Clone()
		rec.Template = &t
	}
	if def.Repeating.Exceptions == nil {
		def.Repeating.Exceptions = map[int]models.ExceptionRecord{}
	}
	def.Repeating.Exceptions[index] = rec
	return nil
}

func (s *Store) DeleteException(activityID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, err := s.repeating(activityID)
	if err != nil {
		return err
	}
	delete(def.Repeating.Exceptions, index)
	return nil
}

func (s *Store) GetCompletions(activityID string) (mo.Option[models.ActivityCompletions], int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.activities[activityID]; !ok {
		return mo.None[models.ActivityCompletions](), 0, fmt.Errorf("%w: %s", storage.ErrNotFound, activityID)
	}
	entry, ok := s.completions[activityID]
	if !ok {
		return mo.None[models.ActivityCompletions](), 0, nil
	}
	return mo.Some(entry.state.Clone()), entry.version, nil
}

func (s *Store) SaveCompletions(activityID string, state models.ActivityCompletions, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activities[activityID]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, activityID)
	}
	current := s.completions[activityID].version
	if current != expectedVersion {
		return fmt.Errorf("%w: activity %s at version %d, expected %d", storage.ErrVersionConflict, activityID, current, expectedVersion)
	}
	s.completions[activityID] = completionsEntry{state: state.Clone(), version: current + 1}
	return nil
}
