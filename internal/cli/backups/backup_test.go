package backups

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/cadence/internal/backup"
	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/planner"
	"github.com/julianstephens/cadence/internal/storage/memory"
	"github.com/julianstephens/cadence/internal/storage/sqlite"
)

func setupTestStore(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "cadence.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { _ = store.Close() })

	out := &bytes.Buffer{}
	return &cli.Context{
		Store:    store,
		Planner:  planner.New(store, planner.Options{}),
		Location: time.UTC,
		Out:      out,
	}, out
}

func addDentist(t *testing.T, ctx *cli.Context) models.ActivityDefinition {
	t.Helper()
	def, err := ctx.Planner.AddSingle(models.ActivityTemplate{
		Name: "Dentist", Kind: models.ActivityKindEvent, At: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return def
}

func TestBackupCreateAndList(t *testing.T) {
	ctx, out := setupTestStore(t)

	require.NoError(t, (&BackupListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "No backups found.")

	out.Reset()
	require.NoError(t, (&BackupCreateCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "Backup created: cadence-")

	out.Reset()
	require.NoError(t, (&BackupListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "Available backups (1 total")
}

func TestBackupRestore(t *testing.T) {
	ctx, out := setupTestStore(t)
	def := addDentist(t, ctx)

	require.NoError(t, (&BackupCreateCmd{}).Run(ctx))
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	require.NoError(t, err)
	require.Len(t, backups, 1)

	require.NoError(t, ctx.Planner.DeleteActivity(def.ID))

	out.Reset()
	cmd := &BackupRestoreCmd{BackupFile: filepath.Base(backups[0].Path), Yes: true}
	require.NoError(t, cmd.Run(ctx))
	assert.Contains(t, out.String(), "Database restored successfully!")
	assert.Contains(t, out.String(), "Previous database saved as")

	require.NoError(t, ctx.Store.Load())
	restored, err := ctx.Planner.GetActivity(def.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dentist", restored.Single.Name)
}

func TestBackupRestoreCancelled(t *testing.T) {
	ctx, out := setupTestStore(t)
	addDentist(t, ctx)
	require.NoError(t, (&BackupCreateCmd{}).Run(ctx))
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	require.NoError(t, err)

	ctx.In = strings.NewReader("n\n")
	out.Reset()
	require.NoError(t, (&BackupRestoreCmd{BackupFile: backups[0].Path}).Run(ctx))
	assert.Contains(t, out.String(), "Restore cancelled.")
}

func TestBackupRestoreMissingFile(t *testing.T) {
	ctx, _ := setupTestStore(t)
	assert.Error(t, (&BackupRestoreCmd{BackupFile: "cadence-19700101-000000.db", Yes: true}).Run(ctx))
}

func TestBackupsRequireSQLite(t *testing.T) {
	store := memory.New()
	ctx := &cli.Context{Store: store, Out: &bytes.Buffer{}}
	assert.Error(t, (&BackupCreateCmd{}).Run(ctx))
	assert.Error(t, (&BackupListCmd{}).Run(ctx))
}
