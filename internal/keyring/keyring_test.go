package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func TestSetGetDelete(t *testing.T) {
	gokeyring.MockInit()

	connStr := "postgres://cadence@localhost:5432/cadence?sslmode=disable"
	require.NoError(t, Set("", connStr))

	got, err := Get("")
	require.NoError(t, err)
	assert.Equal(t, connStr, got)

	require.NoError(t, Delete(""))
	_, err = Get("")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, Delete(""), ErrNotFound)
}

func TestAccountsAreSeparate(t *testing.T) {
	gokeyring.MockInit()

	require.NoError(t, Set("work", "host=work"))
	require.NoError(t, Set("home", "host=home"))

	work, err := Get("work")
	require.NoError(t, err)
	assert.Equal(t, "host=work", work)

	_, err = Get("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetEmptySecret(t *testing.T) {
	gokeyring.MockInit()
	assert.Error(t, Set("", ""))
}

func TestResolve(t *testing.T) {
	gokeyring.MockInit()
	require.NoError(t, Set("work", "host=work user=cadence"))

	plain, err := Resolve("/tmp/cadence.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cadence.db", plain)

	resolved, err := Resolve("keyring:work")
	require.NoError(t, err)
	assert.Equal(t, "host=work user=cadence", resolved)

	_, err = Resolve("keyring:")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsAvailableWithMock(t *testing.T) {
	gokeyring.MockInit()
	assert.True(t, IsAvailable())
}
