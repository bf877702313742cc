package system

import (
	"fmt"

	"github.com/julianstephens/cadence/internal/cli"
)

type ValidateCmd struct {
	All bool `help:"Also check deleted activities."`
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	defs, err := ctx.Planner.ListActivities(c.All)
	if err != nil {
		return fmt.Errorf("failed to load activities: %w", err)
	}

	ctx.Printf("Validating %d activities...\n\n", len(defs))
	result := ctx.Planner.Validator().ValidateDefinitions(defs)
	if !result.HasConflicts() {
		ctx.Println(cli.DoneStyle.Render(result.FormatReport()))
		return nil
	}

	ctx.Println(cli.WarningStyle.Render(result.FormatReport()))
	return fmt.Errorf("validation found %d conflict(s)", len(result.Conflicts))
}
