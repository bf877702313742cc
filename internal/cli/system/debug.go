package system

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/constants"
)

type DebugCmd struct {
	DBPath   DebugDBPathCmd   `cmd:"" name:"db-path" help:"Show database path."`
	Dump     DebugDumpCmd     `cmd:"" help:"Dump an activity definition as JSON."`
	Upcoming DebugUpcomingCmd `cmd:"" help:"Dump upcoming occurrences as JSON."`
}

func printJSON(ctx *cli.Context, v interface{}) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.Println(string(jsonBytes))
	return nil
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return printJSON(ctx, map[string]string{
		"path": ctx.Store.GetConfigPath(),
	})
}

type DebugDumpCmd struct {
	ID string `arg:"" help:"Activity ID."`
}

func (cmd *DebugDumpCmd) Run(ctx *cli.Context) error {
	def, err := ctx.Planner.GetActivity(cmd.ID)
	if err != nil {
		return err
	}
	return printJSON(ctx, def)
}

type DebugUpcomingCmd struct {
	ID    string `arg:"" help:"Activity ID."`
	Count int    `short:"n" help:"Number of occurrences. Defaults to the configured default_count."`
}

func (cmd *DebugUpcomingCmd) Run(ctx *cli.Context) error {
	count := cmd.Count
	if count <= 0 {
		count = ctx.Config.DefaultCount
	}
	if count <= 0 {
		count = constants.DefaultExpandCount
	}
	views, err := ctx.Planner.Upcoming(cmd.ID, ctx.Clock(), count)
	if err != nil {
		return err
	}
	return printJSON(ctx, map[string]interface{}{
		"now":         ctx.Clock().Format(time.RFC3339),
		"occurrences": views,
	})
}
