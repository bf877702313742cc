package activities

import (
	"github.com/julianstephens/cadence/internal/cli"
)

type DeleteCmd struct {
	ID string `arg:"" help:"Activity ID."`
}

func (c *DeleteCmd) Run(ctx *cli.Context) error {
	def, err := ctx.Planner.GetActivity(c.ID)
	if err != nil {
		return err
	}

	ctx.PerformAutomaticBackup()
	if err := ctx.Planner.DeleteActivity(c.ID); err != nil {
		return err
	}
	ctx.Printf("Deleted activity: %s\n", def.Template().Name)
	ctx.Println(cli.MutedStyle.Render("Use 'cadence activity restore " + c.ID + "' to undo."))
	return nil
}

type RestoreCmd struct {
	ID string `arg:"" help:"ID of the deleted activity."`
}

func (c *RestoreCmd) Run(ctx *cli.Context) error {
	if err := ctx.Planner.RestoreActivity(c.ID); err != nil {
		return err
	}
	def, err := ctx.Planner.GetActivity(c.ID)
	if err != nil {
		return err
	}
	ctx.Printf("Restored activity: %s\n", def.Template().Name)
	return nil
}
