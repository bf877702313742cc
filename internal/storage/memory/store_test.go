package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/cadence/internal/storage"
	"github.com/julianstephens/cadence/internal/storage/storagetest"
)

func TestProvider(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Provider {
		return New()
	})
}

func TestReturnedDefinitionsAreDetached(t *testing.T) {
	s := New()
	def := storagetest.Repeating("rep-1", time.Now())
	require.NoError(t, s.AddActivity(def))

	def.Repeating.Template.Name = "changed by caller"
	got, err := s.GetActivity("rep-1")
	require.NoError(t, err)
	assert.Equal(t, "Standup", got.Repeating.Template.Name)

	got.Repeating.Template.Reminder.Value = 99
	again, err := s.GetActivity("rep-1")
	require.NoError(t, err)
	assert.Equal(t, 10, again.Repeating.Template.Reminder.Value)
}
