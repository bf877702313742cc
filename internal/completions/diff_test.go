package completions

import (
	"math/rand"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/cadence/internal/models"
)

func state(latest int, exceptions ...int) mo.Option[models.ActivityCompletions] {
	c := models.NewCompletions()
	c.LatestFinishedIndex = latest
	for _, i := range exceptions {
		c.Exceptions[i] = struct{}{}
	}
	return mo.Some(c)
}

func TestDiff_MarkCompleteFromEmpty(t *testing.T) {
	delta, err := Diff(state(-1), 3, true)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, delta.Added)
	assert.Empty(t, delta.Removed)
	assert.Equal(t, 3, delta.NewLatestFinishedIndex)
}

func TestDiff_AbsentStateBehavesAsEmpty(t *testing.T) {
	fromNone, err := Diff(mo.None[models.ActivityCompletions](), 3, true)
	require.NoError(t, err)
	fromEmpty, err := Diff(state(-1), 3, true)
	require.NoError(t, err)

	assert.Equal(t, fromEmpty, fromNone)
}

func TestDiff_Cases(t *testing.T) {
	tests := []struct {
		name        string
		start       mo.Option[models.ActivityCompletions]
		index       int
		completed   bool
		wantAdded   []int
		wantRemoved []int
		wantLatest  int
	}{
		{
			name:       "extend frontier by one",
			start:      state(2),
			index:      3,
			completed:  true,
			wantAdded:  []int{},
			wantLatest: 3,
		},
		{
			name:        "extend frontier over completed exception",
			start:       state(1, 3),
			index:       5,
			completed:   true,
			wantAdded:   []int{2, 4},
			wantRemoved: []int{3},
			wantLatest:  5,
		},
		{
			name:        "extend frontier onto completed exception",
			start:       state(1, 4),
			index:       4,
			completed:   true,
			wantAdded:   []int{2, 3},
			wantRemoved: []int{4},
			wantLatest:  4,
		},
		{
			name:       "complete at frontier is a no-op",
			start:      state(4, 1),
			index:      4,
			completed:  true,
			wantAdded:  []int{},
			wantLatest: 4,
		},
		{
			name:        "complete open index below frontier",
			start:       state(5, 2),
			index:       2,
			completed:   true,
			wantRemoved: []int{2},
			wantLatest:  5,
		},
		{
			name:       "complete done index below frontier",
			start:      state(5, 2),
			index:      3,
			completed:  true,
			wantAdded:  []int{},
			wantLatest: 5,
		},
		{
			name:       "retract frontier without exceptions",
			start:      state(5),
			index:      5,
			completed:  false,
			wantAdded:  []int{},
			wantLatest: 4,
		},
		{
			name:        "retract frontier across open run",
			start:       state(5, 4, 3, 1),
			index:       5,
			completed:   false,
			wantRemoved: []int{3, 4},
			wantLatest:  2,
		},
		{
			name:        "retract frontier to nothing",
			start:       state(3, 0, 1, 2),
			index:       3,
			completed:   false,
			wantRemoved: []int{0, 1, 2},
			wantLatest:  -1,
		},
		{
			name:       "open done index below frontier",
			start:      state(5),
			index:      2,
			completed:  false,
			wantAdded:  []int{2},
			wantLatest: 5,
		},
		{
			name:       "open already open index below frontier",
			start:      state(5, 2),
			index:      2,
			completed:  false,
			wantAdded:  []int{},
			wantLatest: 5,
		},
		{
			name:       "open index above frontier is a no-op",
			start:      state(2),
			index:      7,
			completed:  false,
			wantAdded:  []int{},
			wantLatest: 2,
		},
		{
			name:        "open completed exception above frontier",
			start:       state(2, 7),
			index:       7,
			completed:   false,
			wantRemoved: []int{7},
			wantLatest:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, err := Diff(tt.start, tt.index, tt.completed)
			require.NoError(t, err)

			wantAdded := tt.wantAdded
			if wantAdded == nil {
				wantAdded = []int{}
			}
			wantRemoved := tt.wantRemoved
			if wantRemoved == nil {
				wantRemoved = []int{}
			}
			assert.Equal(t, wantAdded, delta.Added)
			assert.Equal(t, wantRemoved, delta.Removed)
			assert.Equal(t, tt.wantLatest, delta.NewLatestFinishedIndex)
		})
	}
}

func TestDiff_NegativeIndex(t *testing.T) {
	_, err := Diff(state(-1), -1, true)
	assert.ErrorIs(t, err, ErrNegativeIndex)

	_, err = Diff(state(3), -5, false)
	assert.ErrorIs(t, err, ErrNegativeIndex)
}

func TestDiff_Idempotent(t *testing.T) {
	for _, completed := range []bool{true, false} {
		next, _, err := Toggle(state(4, 1, 6), 3, completed)
		require.NoError(t, err)

		delta, err := Diff(mo.Some(next), 3, completed)
		require.NoError(t, err)
		assert.Empty(t, delta.Added)
		assert.Empty(t, delta.Removed)
		assert.Equal(t, next.LatestFinishedIndex, delta.NewLatestFinishedIndex)
	}
}

func TestDiff_RoundTripRestoresEmptyState(t *testing.T) {
	done, _, err := Toggle(mo.None[models.ActivityCompletions](), 3, true)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted(3))

	undone, _, err := Toggle(mo.Some(done), 3, false)
	require.NoError(t, err)
	assert.Equal(t, -1, undone.LatestFinishedIndex)
	assert.Empty(t, undone.Exceptions)
}

func TestDiff_DoesNotMutateInput(t *testing.T) {
	start := state(2, 1)
	before := start.MustGet().Clone()

	_, _, err := Toggle(start, 6, true)
	require.NoError(t, err)

	assert.Equal(t, before, start.MustGet())
}

// TestDiff_RandomToggles drives long random toggle sequences and checks the
// contract after each step: the target takes the requested state, every
// other index keeps its state, complete toggles never lower the frontier
// and a round trip restores every derived state.
func TestDiff_RandomToggles(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const span = 24

	for run := 0; run < 50; run++ {
		current := models.NewCompletions()
		for step := 0; step < 40; step++ {
			index := rng.Intn(span)
			completed := rng.Intn(2) == 0

			next, delta, err := Toggle(mo.Some(current), index, completed)
			require.NoError(t, err)

			require.Equal(t, completed, next.IsCompleted(index), "run %d step %d index %d", run, step, index)
			for i := 0; i < span+2; i++ {
				if i == index {
					continue
				}
				require.Equal(t, current.IsCompleted(i), next.IsCompleted(i), "run %d step %d: index %d changed", run, step, i)
			}
			if completed {
				require.GreaterOrEqual(t, delta.NewLatestFinishedIndex, current.LatestFinishedIndex)
			}
			for _, i := range delta.Added {
				require.False(t, current.HasException(i), "added %d already present", i)
			}
			for _, i := range delta.Removed {
				require.True(t, current.HasException(i), "removed %d not present", i)
			}

			back, _, err := Toggle(mo.Some(next), index, current.IsCompleted(index))
			require.NoError(t, err)
			limit := max(index, current.LatestFinishedIndex) + 1
			for i := 0; i <= limit; i++ {
				require.Equal(t, current.IsCompleted(i), back.IsCompleted(i), "round trip changed index %d", i)
			}

			current = next
		}
	}
}

func TestIsCompleted(t *testing.T) {
	assert.False(t, IsCompleted(mo.None[models.ActivityCompletions](), 0))
	assert.True(t, IsCompleted(state(2, 5), 5))
	assert.False(t, IsCompleted(state(2, 1), 1))
}

func TestFromDefinition(t *testing.T) {
	def := models.ActivityDefinition{ID: "a"}
	assert.True(t, FromDefinition(def).IsAbsent())

	c := models.NewCompletions()
	c.LatestFinishedIndex = 4
	def.Completions = &c
	got, ok := FromDefinition(def).Get()
	require.True(t, ok)
	assert.Equal(t, 4, got.LatestFinishedIndex)
}
