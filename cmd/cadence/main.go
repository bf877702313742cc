package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/cli/activities"
	"github.com/julianstephens/cadence/internal/cli/backups"
	"github.com/julianstephens/cadence/internal/cli/system"
	"github.com/julianstephens/cadence/internal/config"
	"github.com/julianstephens/cadence/internal/constants"
	apperrors "github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/keyring"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/planner"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/storage"
	"github.com/julianstephens/cadence/internal/storage/postgres"
	"github.com/julianstephens/cadence/internal/storage/sqlite"
	"github.com/julianstephens/cadence/internal/utils"
)

type CLI struct {
	Version   kong.VersionFlag
	ConfigDir string `help:"Directory holding config.yaml and logs." name:"config-dir" type:"path" default:"${config_dir}"`
	Database  string `help:"SQLite path, PostgreSQL connection string or 'keyring:<user>' reference. For PostgreSQL, credentials must NOT be embedded in the connection string. Use the OS keyring, environment variables or .pgpass instead."`
	Timezone  string `help:"IANA timezone used to read and print instants."`
	Debug     bool   `help:"Log debug output to stderr."`

	Init     system.InitCmd     `cmd:"" help:"Initialize cadence storage and config."`
	Migrate  system.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Validate system.ValidateCmd `cmd:"" help:"Check stored activities for conflicts."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Activity struct {
		Add     activities.AddCmd     `cmd:"" help:"Add a one-off or repeating activity."`
		List    activities.ListCmd    `cmd:"" help:"List activities."`
		Show    activities.ShowCmd    `cmd:"" help:"Show an activity and its upcoming occurrences."`
		Delete  activities.DeleteCmd  `cmd:"" help:"Delete an activity."`
		Restore activities.RestoreCmd `cmd:"" help:"Restore a deleted activity."`
	} `cmd:"" help:"Manage activities."`
	Occurrences activities.OccurrencesCmd `cmd:"" help:"List the occurrences of an activity in a window."`
	Index       activities.IndexCmd       `cmd:"" help:"Resolve the occurrence index an instant falls into."`
	Done        activities.DoneCmd        `cmd:"" help:"Mark an occurrence completed."`
	Undone      activities.UndoneCmd      `cmd:"" help:"Mark an occurrence not completed."`
	Skip        activities.SkipCmd        `cmd:"" help:"Skip one occurrence of a repeating activity."`
	Override    activities.OverrideCmd    `cmd:"" help:"Reschedule or edit one occurrence of a repeating activity."`
	Unskip      activities.UnskipCmd      `cmd:"" help:"Remove a skip or override from an occurrence."`
	Agenda      activities.AgendaCmd      `cmd:"" help:"Show every activity scheduled in a window." default:"1"`
	Export      activities.ExportCmd      `cmd:"" help:"Export a window as an iCalendar file."`
	Backup      struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
	} `cmd:"" help:"Manage database credentials in the OS keyring."`
	DebugTools system.DebugCmd `cmd:"" name:"debug" hidden:"" help:"Debug commands for troubleshooting."`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		apperrors.Fatal(err)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var root CLI
	parser, err := kong.New(&root,
		kong.Name(constants.AppName),
		kong.Description("Recurring activities with per-occurrence completion tracking"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":    constants.Version,
			"config_dir": config.DefaultDir(),
		},
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.Options{Dir: root.ConfigDir})
	if err != nil {
		return err
	}
	if root.Database != "" {
		cfg.Database = utils.ExpandHome(root.Database)
	}
	if root.Timezone != "" {
		cfg.Timezone = root.Timezone
	}
	if root.Debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Debug:     cfg.Debug,
		ConfigDir: root.ConfigDir,
		Level:     cfg.LogLevel,
		JSON:      cfg.LogFormat == "json",
	}); err != nil {
		fmt.Fprintf(stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	loc, err := utils.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}
	expander, err := recurrence.ForMode(cfg.Stride)
	if err != nil {
		return err
	}

	appCtx := &cli.Context{
		Config:    cfg,
		ConfigDir: root.ConfigDir,
		Location:  loc,
		Out:       stdout,
		In:        stdin,
	}

	// Keyring commands manage the credentials the store would need
	command := ctx.Command()
	if !strings.HasPrefix(command, "keyring") {
		fromEnv := root.Database == "" && os.Getenv(constants.EnvDBConnection) != ""
		store, err := openStore(cfg.Database, fromEnv)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close storage", "error", err)
			}
		}()
		appCtx.Store = store
		appCtx.Planner = planner.New(store, planner.Options{
			Expander:   expander,
			MaxRetries: cfg.MaxRetries,
		})

		// Init handles its own storage setup and doctor reports load failures
		if !strings.HasPrefix(command, "init") && !strings.HasPrefix(command, "doctor") {
			if err := store.Load(); err != nil {
				return err
			}
		}
	}

	return ctx.Run(appCtx)
}

// openStore picks the storage backend from the database setting, resolving
// keyring references first. Embedded passwords are only accepted from the
// keyring or the environment.
func openStore(database string, fromEnv bool) (storage.Provider, error) {
	resolved, err := keyring.Resolve(database)
	if err != nil {
		return nil, err
	}
	if !storage.IsPostgresConnString(resolved) {
		return sqlite.NewStore(resolved), nil
	}

	if err := postgres.ValidateConnString(resolved); err != nil {
		trusted := fromEnv || keyring.IsRef(database)
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) || !trusted {
			return nil, fmt.Errorf("%w\n       Store the connection string with '%s keyring set' and reference it as 'keyring:', export %s, or use a .pgpass file",
				err, constants.AppName, constants.EnvDBConnection)
		}
	}
	return postgres.New(resolved), nil
}
