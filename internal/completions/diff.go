// Package completions tracks which occurrences of a repeating activity are
// done without storing one record per occurrence.
//
// State is a high-water mark L plus a sparse exception set E: index i is
// complete iff (i <= L) != (i in E). Diff computes the minimal change to
// that state for a single toggle; callers persist the delta themselves.
package completions

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samber/mo"

	"github.com/julianstephens/cadence/internal/models"
)

// ErrNegativeIndex is returned for occurrence indices below zero.
var ErrNegativeIndex = errors.New("occurrence index must not be negative")

// Diff returns the delta that marks index as completed (or not) while
// leaving the derived state of every other index unchanged. An absent
// state is treated as nothing finished.
func Diff(current mo.Option[models.ActivityCompletions], index int, completed bool) (models.CompletionsDelta, error) {
	if index < 0 {
		return models.CompletionsDelta{}, fmt.Errorf("%w: %d", ErrNegativeIndex, index)
	}

	state := current.OrElse(models.NewCompletions())
	latest := state.LatestFinishedIndex
	delta := models.CompletionsDelta{
		Added:                  []int{},
		Removed:                []int{},
		NewLatestFinishedIndex: latest,
	}

	switch {
	case completed && index >= latest:
		// Move the frontier up to index. Everything newly under the frontier
		// keeps its previous state: indices that were open become exceptions,
		// indices that were done through an exception lose it.
		for j := latest + 1; j < index; j++ {
			if state.HasException(j) {
				delta.Removed = append(delta.Removed, j)
			} else {
				delta.Added = append(delta.Added, j)
			}
		}
		if state.HasException(index) {
			delta.Removed = append(delta.Removed, index)
		}
		delta.NewLatestFinishedIndex = index

	case completed:
		if state.HasException(index) {
			delta.Removed = append(delta.Removed, index)
		}

	case index == latest:
		if state.HasException(index) {
			// Already open.
			return delta, nil
		}
		// Retract the frontier past the contiguous run of open indices below
		// it; their exceptions become redundant once they sit above it.
		j := index - 1
		for j >= 0 && state.HasException(j) {
			delta.Removed = append(delta.Removed, j)
			j--
		}
		slices.Sort(delta.Removed)
		delta.NewLatestFinishedIndex = j

	case index < latest:
		if !state.HasException(index) {
			delta.Added = append(delta.Added, index)
		}

	default:
		// Above the frontier an index is open unless an exception says otherwise.
		if state.HasException(index) {
			delta.Removed = append(delta.Removed, index)
		}
	}

	return delta, nil
}

// Toggle computes the delta for index and returns it together with the
// resulting state.
func Toggle(current mo.Option[models.ActivityCompletions], index int, completed bool) (models.ActivityCompletions, models.CompletionsDelta, error) {
	delta, err := Diff(current, index, completed)
	if err != nil {
		return models.ActivityCompletions{}, delta, err
	}
	next := current.OrElse(models.NewCompletions()).Apply(delta)
	return next, delta, nil
}

// IsCompleted derives the state of index from an optional completions value.
func IsCompleted(current mo.Option[models.ActivityCompletions], index int) bool {
	state, ok := current.Get()
	if !ok {
		return false
	}
	return state.IsCompleted(index)
}

// FromDefinition lifts the definition's lazily created completions into an
// option.
func FromDefinition(def models.ActivityDefinition) mo.Option[models.ActivityCompletions] {
	if def.Completions == nil {
		return mo.None[models.ActivityCompletions]()
	}
	return mo.Some(*def.Completions)
}
