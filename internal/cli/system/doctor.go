package system

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/backup"
	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/keyring"
	"github.com/julianstephens/cadence/internal/storage/sqlite"
	"github.com/julianstephens/cadence/internal/utils"
)

type schemaStore interface {
	SchemaVersions() (current, latest int, err error)
	GetDB() *sql.DB
}

type DoctorCmd struct{}

type check struct {
	name    string
	run     func(*cli.Context) error
	warning bool
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	checks := []check{
		{name: "Database reachable", run: checkDBReachable},
		{name: "Schema version", run: checkSchemaVersion},
		{name: "Backups present", run: checkBackupsPresent, warning: true},
		{name: "Data validation", run: checkValidation},
		{name: "Keyring", run: checkKeyring, warning: true},
		{name: "Clock/timezone", run: checkClockTimezone},
	}

	hasError := false
	dbReachable := true
	for _, c := range checks {
		if c.name == "Data validation" && !dbReachable {
			ctx.Println(cli.MutedStyle.Render("- " + c.name + ": SKIPPED (database not reachable)"))
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.Println(cli.DoneStyle.Render("✓ " + c.name + ": OK"))
		case c.warning:
			ctx.Println(cli.WarningStyle.Render("⚠ " + c.name + ": WARNING"))
			ctx.Printf("   %v\n", err)
		default:
			ctx.Println(cli.DangerStyle.Render("✗ " + c.name + ": FAIL"))
			ctx.Printf("   Error: %v\n", err)
			hasError = true
			if c.name == "Database reachable" {
				dbReachable = false
			}
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	s, ok := ctx.Store.(schemaStore)
	if !ok {
		return nil
	}
	db := s.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	s, ok := ctx.Store.(schemaStore)
	if !ok {
		return nil
	}
	current, latest, err := s.SchemaVersions()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d - run '%s migrate'", current, latest, constants.AppName)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil
	}
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with '%s backup create'", constants.AppName)
	}
	return nil
}

func checkValidation(ctx *cli.Context) error {
	defs, err := ctx.Planner.ListActivities(false)
	if err != nil {
		return fmt.Errorf("failed to get activities: %w", err)
	}
	result := ctx.Planner.Validator().ValidateDefinitions(defs)
	if result.HasConflicts() {
		return fmt.Errorf("%d conflict(s) found - run '%s validate' for details", len(result.Conflicts), constants.AppName)
	}
	return nil
}

func checkKeyring(ctx *cli.Context) error {
	if !keyring.IsRef(ctx.Config.Database) {
		return nil
	}
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := ctx.Clock()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if _, err := utils.LoadLocation(ctx.Config.Timezone); err != nil {
		return err
	}
	return nil
}
