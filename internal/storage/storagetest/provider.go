// Package storagetest runs one behavioural suite against every
// storage.Provider implementation.
package storagetest

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/storage"
)

var base = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

// Repeating builds a daily repeating definition used across the suite.
func Repeating(id string, created time.Time) models.ActivityDefinition {
	return models.ActivityDefinition{
		ID:   id,
		Kind: models.DefinitionRepeating,
		Repeating: &models.RepeatingActivity{
			Template: models.ActivityTemplate{
				Name:        "Standup",
				Kind:        models.ActivityKindEvent,
				At:          base,
				DurationMin: 15,
				Reminder:    &models.Offset{Value: 10, Unit: models.UnitMinute},
				Category:    "work",
				Zone:        "UTC",
			},
			Repeat:     models.RepeatConfig{Every: 1, Unit: models.RepeatWeek, WeekDays: models.NewWeekdayMask(time.Monday, time.Friday)},
			End:        models.AfterCount(10),
			Exceptions: map[int]models.ExceptionRecord{},
		},
		CreatedAt: created,
	}
}

// Single builds a one-off task definition.
func Single(id string, created time.Time) models.ActivityDefinition {
	return models.ActivityDefinition{
		ID:   id,
		Kind: models.DefinitionSingle,
		Single: &models.ActivityTemplate{
			Name:     "File taxes",
			Kind:     models.ActivityKindTask,
			At:       base,
			Deadline: &models.Offset{Value: 2, Unit: models.UnitDay},
			Zone:     "UTC",
		},
		CreatedAt: created,
	}
}

// Run exercises a fresh provider returned by newProvider for each subtest.
func Run(t *testing.T, newProvider func(t *testing.T) storage.Provider) {
	t.Run("RoundTripsDefinitions", func(t *testing.T) {
		p := newProvider(t)
		rep := Repeating("rep-1", base)
		rep.Repeating.End = models.Until(base.AddDate(0, 1, 0))
		single := Single("single-1", base.Add(time.Minute))
		require.NoError(t, p.AddActivity(rep))
		require.NoError(t, p.AddActivity(single))

		got, err := p.GetActivity("rep-1")
		require.NoError(t, err)
		assert.Equal(t, models.DefinitionRepeating, got.Kind)
		assert.Equal(t, "Standup", got.Repeating.Template.Name)
		assert.True(t, got.Repeating.Template.At.Equal(base))
		require.NotNil(t, got.Repeating.Template.Reminder)
		assert.Equal(t, 10, got.Repeating.Template.Reminder.Value)
		assert.Equal(t, rep.Repeating.Repeat, got.Repeating.Repeat)
		assert.Equal(t, models.EndUntil, got.Repeating.End.Type)
		assert.True(t, got.Repeating.End.Until.Equal(base.AddDate(0, 1, 0)))
		assert.Nil(t, got.Completions)

		gotSingle, err := p.GetActivity("single-1")
		require.NoError(t, err)
		require.NotNil(t, gotSingle.Single)
		assert.Equal(t, "File taxes", gotSingle.Single.Name)
		require.NotNil(t, gotSingle.Single.Deadline)
		assert.Equal(t, models.UnitDay, gotSingle.Single.Deadline.Unit)

		all, err := p.GetAllActivities()
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "rep-1", all[0].ID)
		assert.Equal(t, "single-1", all[1].ID)
	})

	t.Run("MissingActivity", func(t *testing.T) {
		p := newProvider(t)
		_, err := p.GetActivity("nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, p.DeleteActivity("nope"), storage.ErrNotFound)
		_, _, err = p.GetCompletions("nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("SoftDeleteAndRestore", func(t *testing.T) {
		p := newProvider(t)
		require.NoError(t, p.AddActivity(Repeating("rep-1", base)))
		require.NoError(t, p.DeleteActivity("rep-1"))

		_, err := p.GetActivity("rep-1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, p.DeleteActivity("rep-1"), storage.ErrNotFound)

		active, err := p.GetAllActivities()
		require.NoError(t, err)
		assert.Empty(t, active)

		all, err := p.GetAllActivitiesIncludingDeleted()
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.NotNil(t, all[0].DeletedAt)

		require.NoError(t, p.RestoreActivity("rep-1"))
		assert.Error(t, p.RestoreActivity("rep-1"))
		_, err = p.GetActivity("rep-1")
		assert.NoError(t, err)
	})

	t.Run("Exceptions", func(t *testing.T) {
		p := newProvider(t)
		require.NoError(t, p.AddActivity(Repeating("rep-1", base)))
		require.NoError(t, p.AddActivity(Single("single-1", base)))

		override := models.ActivityTemplate{Name: "Late standup", Kind: models.ActivityKindEvent, At: base.Add(time.Hour), DurationMin: 15, Zone: "UTC"}
		require.NoError(t, p.SetException("rep-1", 2, models.ExceptionRecord{ID: "ex-1", Kind: models.ExceptionSkip}))
		require.NoError(t, p.SetException("rep-1", 4, models.ExceptionRecord{ID: "ex-2", Kind: models.ExceptionOverride, Template: &override}))
		assert.Error(t, p.SetException("single-1", 0, models.ExceptionRecord{ID: "ex-3", Kind: models.ExceptionSkip}))

		got, err := p.GetActivity("rep-1")
		require.NoError(t, err)
		require.Len(t, got.Repeating.Exceptions, 2)
		assert.Equal(t, models.ExceptionSkip, got.Repeating.Exceptions[2].Kind)
		assert.Nil(t, got.Repeating.Exceptions[2].Template)
		require.NotNil(t, got.Repeating.Exceptions[4].Template)
		assert.Equal(t, "Late standup", got.Repeating.Exceptions[4].Template.Name)

		// Updating the definition keeps stored exceptions.
		got.Repeating.Template.Name = "Daily sync"
		require.NoError(t, p.UpdateActivity(got))
		require.NoError(t, p.DeleteException("rep-1", 2))

		got, err = p.GetActivity("rep-1")
		require.NoError(t, err)
		assert.Equal(t, "Daily sync", got.Repeating.Template.Name)
		require.Len(t, got.Repeating.Exceptions, 1)
		_, ok := got.Repeating.Exceptions[4]
		assert.True(t, ok)
	})

	t.Run("CompletionsVersioning", func(t *testing.T) {
		p := newProvider(t)
		require.NoError(t, p.AddActivity(Repeating("rep-1", base)))

		state, version, err := p.GetCompletions("rep-1")
		require.NoError(t, err)
		assert.True(t, state.IsAbsent())
		assert.Equal(t, int64(0), version)

		first := models.ActivityCompletions{LatestFinishedIndex: 3, Exceptions: map[int]struct{}{1: {}}}
		require.NoError(t, p.SaveCompletions("rep-1", first, 0))
		err = p.SaveCompletions("rep-1", first, 0)
		assert.ErrorIs(t, err, storage.ErrVersionConflict)

		state, version, err = p.GetCompletions("rep-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), version)
		got := state.MustGet()
		assert.Equal(t, 3, got.LatestFinishedIndex)
		assert.Equal(t, []int{1}, got.SortedExceptions())

		second := models.ActivityCompletions{LatestFinishedIndex: 5, Exceptions: map[int]struct{}{1: {}, 4: {}}}
		assert.ErrorIs(t, p.SaveCompletions("rep-1", second, 7), storage.ErrVersionConflict)
		require.NoError(t, p.SaveCompletions("rep-1", second, 1))

		def, err := p.GetActivity("rep-1")
		require.NoError(t, err)
		require.NotNil(t, def.Completions)
		assert.Equal(t, 5, def.Completions.LatestFinishedIndex)
		assert.Equal(t, []int{1, 4}, def.Completions.SortedExceptions())
	})

	t.Run("ConcurrentSavesConflict", func(t *testing.T) {
		p := newProvider(t)
		require.NoError(t, p.AddActivity(Repeating("rep-1", base)))

		const writers = 8
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins, conflicts := 0, 0
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := p.SaveCompletions("rep-1", models.ActivityCompletions{LatestFinishedIndex: i, Exceptions: map[int]struct{}{}}, 0)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, storage.ErrVersionConflict):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		assert.Equal(t, writers-1, conflicts)
	})
}
