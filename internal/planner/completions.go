package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/cadence/internal/completions"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/storage"
)

const maxRetryDelay = 500 * time.Millisecond

// checkIndex rejects indices that no occurrence of def can carry.
func (s *Service) checkIndex(def models.ActivityDefinition, index int) error {
	if index < 0 {
		return fmt.Errorf("%w: %d", completions.ErrNegativeIndex, index)
	}
	if index > constants.MaxOccurrenceIndex {
		return fmt.Errorf("%w: %d exceeds the maximum index %d", ErrOutOfRange, index, constants.MaxOccurrenceIndex)
	}
	if !def.IsRepeating() {
		if index != 0 {
			return fmt.Errorf("%w: single activity %s only has index 0", ErrOutOfRange, def.ID)
		}
		return nil
	}
	if _, ok := s.expander.OccurrenceAt(*def.Repeating, index); !ok {
		return fmt.Errorf("%w: %d of %s", ErrOutOfRange, index, def.ID)
	}
	return nil
}

// SetCompleted marks one occurrence completed or not. The read, diff and
// write are retried while another writer wins the version race.
func (s *Service) SetCompleted(id string, index int, completed bool) (models.CompletionsDelta, error) {
	def, err := s.store.GetActivity(id)
	if err != nil {
		return models.CompletionsDelta{}, err
	}
	if err := s.checkIndex(def, index); err != nil {
		return models.CompletionsDelta{}, err
	}

	delay := s.retryDelay
	for attempt := 1; ; attempt++ {
		current, version, err := s.store.GetCompletions(id)
		if err != nil {
			return models.CompletionsDelta{}, err
		}

		next, delta, err := completions.Toggle(current, index, completed)
		if err != nil {
			return models.CompletionsDelta{}, err
		}
		previous := current.OrElse(models.NewCompletions()).LatestFinishedIndex
		if delta.IsNoop(previous) {
			return delta, nil
		}

		err = s.store.SaveCompletions(id, next, version)
		if err == nil {
			logger.Debug("Saved completions", "id", id, "index", index, "completed", completed,
				"added", delta.Added, "removed", delta.Removed, "latest", delta.NewLatestFinishedIndex)
			return delta, nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return models.CompletionsDelta{}, err
		}
		if attempt > s.maxRetries {
			return models.CompletionsDelta{}, fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		logger.Warn("Completions changed concurrently, retrying", "id", id, "attempt", attempt)
		time.Sleep(delay)
		if delay < maxRetryDelay {
			delay *= 2
		}
	}
}

// IsCompleted reports the completion status of one occurrence.
func (s *Service) IsCompleted(id string, index int) (bool, error) {
	current, _, err := s.store.GetCompletions(id)
	if err != nil {
		return false, err
	}
	return completions.IsCompleted(current, index), nil
}

func (s *Service) repeating(id string, index int) (models.ActivityDefinition, error) {
	def, err := s.store.GetActivity(id)
	if err != nil {
		return models.ActivityDefinition{}, err
	}
	if !def.IsRepeating() {
		return models.ActivityDefinition{}, fmt.Errorf("%w: %s", ErrNotRepeating, id)
	}
	if err := s.checkIndex(def, index); err != nil {
		return models.ActivityDefinition{}, err
	}
	return def, nil
}

// Skip cancels one occurrence of a repeating activity.
func (s *Service) Skip(id string, index int) error {
	if _, err := s.repeating(id, index); err != nil {
		return err
	}
	rec := models.ExceptionRecord{ID: uuid.New().String(), Kind: models.ExceptionSkip}
	if err := s.store.SetException(id, index, rec); err != nil {
		return err
	}
	logger.Info("Skipped occurrence", "id", id, "index", index)
	return nil
}

// Override replaces the template of one occurrence. A zero At keeps the
// occurrence's scheduled start.
func (s *Service) Override(id string, index int, template models.ActivityTemplate) error {
	def, err := s.repeating(id, index)
	if err != nil {
		return err
	}
	if template.At.IsZero() {
		at, _ := s.expander.OccurrenceAt(*def.Repeating, index)
		template.At = at
	}

	rec := models.ExceptionRecord{ID: uuid.New().String(), Kind: models.ExceptionOverride, Template: &template}
	if err := s.validator.Exception(rec); err != nil {
		return fmt.Errorf("invalid override: %w", err)
	}
	if err := s.store.SetException(id, index, rec); err != nil {
		return err
	}
	logger.Info("Overrode occurrence", "id", id, "index", index)
	return nil
}

// ClearException removes a skip or override from one occurrence.
func (s *Service) ClearException(id string, index int) error {
	def, err := s.repeating(id, index)
	if err != nil {
		return err
	}
	if _, ok := def.Repeating.Exceptions[index]; !ok {
		return fmt.Errorf("occurrence %d of %s has no exception", index, id)
	}
	return s.store.DeleteException(id, index)
}
