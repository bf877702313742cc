package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/config"
	"github.com/julianstephens/cadence/internal/storage/sqlite"
)

type InitCmd struct {
	Force    bool   `help:"Force reset by deleting the existing SQLite database before initialization."`
	Timezone string `help:"Timezone written to a new config file, e.g. 'Europe/Berlin'."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized cadence storage at: %s\n", ctx.Store.GetConfigPath())

	if ctx.ConfigDir == "" {
		return nil
	}
	cfgPath := filepath.Join(ctx.ConfigDir, "config.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access config file: %w", err)
	}

	cfg := ctx.Config
	if c.Timezone != "" {
		cfg.Timezone = c.Timezone
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	written, err := config.Write(ctx.ConfigDir, cfg)
	if err != nil {
		return err
	}
	ctx.Printf("Wrote config: %s\n", written)
	return nil
}

func (c *InitCmd) reset(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return fmt.Errorf("--force is only supported for SQLite storage")
	}
	dbPath := ctx.Store.GetConfigPath()
	if _, err := os.Stat(dbPath); err == nil {
		// Database exists, close it first to prevent file locking issues
		if err := ctx.Store.Close(); err != nil {
			return fmt.Errorf("failed to close existing database: %w", err)
		}
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		ctx.Printf("Deleted existing database at: %s\n", dbPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	return nil
}
