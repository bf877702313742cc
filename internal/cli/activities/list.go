package activities

import (
	"fmt"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/planner"
)

type ListCmd struct {
	All     bool `help:"Include deleted activities."`
	ShowIDs bool `help:"Show activity IDs." name:"show-ids"`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	defs, err := ctx.Planner.ListActivities(c.All)
	if err != nil {
		return fmt.Errorf("failed to get activities: %w", err)
	}
	if len(defs) == 0 {
		ctx.Println("No activities found")
		return nil
	}

	ctx.Println(cli.TitleStyle.Render("Activities:"))
	for _, def := range defs {
		t := def.Template()

		idStr := ""
		if c.ShowIDs {
			idStr = fmt.Sprintf(" (ID: %s)", def.ID)
		}
		schedule := ctx.FormatTime(t.At)
		if def.IsRepeating() {
			schedule = fmt.Sprintf("%s from %s, %s",
				cli.FormatRepeat(def.Repeating.Repeat), schedule, ctx.FormatEnd(def.Repeating.End))
		}

		line := fmt.Sprintf("  [%s] %s%s - %s", t.Kind, t.Name, idStr, schedule)
		if def.DeletedAt != nil {
			line = cli.MutedStyle.Render(line + " (deleted)")
		}
		ctx.Println(line)
	}
	return nil
}

type ShowCmd struct {
	ID    string `arg:"" help:"Activity ID."`
	Count int    `short:"n" help:"Number of upcoming occurrences to show. Defaults to the configured default_count."`
}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	def, err := ctx.Planner.GetActivity(c.ID)
	if err != nil {
		return err
	}
	t := def.Template()

	ctx.Println(cli.TitleStyle.Render(fmt.Sprintf("%s (%s)", t.Name, t.Kind)))
	ctx.Printf("  ID:        %s\n", def.ID)
	ctx.Printf("  Starts:    %s\n", ctx.FormatTime(t.At))
	ctx.Printf("  Duration:  %dm\n", t.DurationMin)
	if def.IsRepeating() {
		ctx.Printf("  Repeats:   %s\n", cli.FormatRepeat(def.Repeating.Repeat))
		ctx.Printf("  Ends:      %s\n", ctx.FormatEnd(def.Repeating.End))
	}
	if t.Deadline != nil {
		ctx.Printf("  Deadline:  %s after start\n", cli.FormatOffset(t.Deadline))
	}
	if t.Reminder != nil {
		ctx.Printf("  Reminder:  %s before\n", cli.FormatOffset(t.Reminder))
	}
	if t.Start != nil {
		ctx.Printf("  Start:     %s before\n", cli.FormatOffset(t.Start))
	}
	if t.Category != "" {
		ctx.Printf("  Category:  %s\n", t.Category)
	}
	if t.Zone != "" {
		ctx.Printf("  Zone:      %s\n", t.Zone)
	}

	if def.IsRepeating() {
		printExceptions(ctx, def.Repeating)
	}
	if def.Completions != nil {
		ctx.Printf("  Completed through index %d, flipped: %v\n",
			def.Completions.LatestFinishedIndex, def.Completions.SortedExceptions())
	}

	count := c.Count
	if count <= 0 {
		count = ctx.Config.DefaultCount
	}
	if count <= 0 {
		count = constants.DefaultExpandCount
	}
	views, err := ctx.Planner.Upcoming(def.ID, ctx.Clock(), count)
	if err != nil {
		return err
	}
	ctx.Println()
	if len(views) == 0 {
		ctx.Println(cli.MutedStyle.Render("No upcoming occurrences"))
		return nil
	}
	ctx.Println(cli.TitleStyle.Render("Upcoming:"))
	for _, v := range views {
		printOccurrence(ctx, v)
	}
	return nil
}

func printExceptions(ctx *cli.Context, rep *models.RepeatingActivity) {
	if len(rep.Exceptions) == 0 {
		return
	}
	ctx.Println("  Exceptions:")
	for _, index := range sortedKeys(rep.Exceptions) {
		rec := rep.Exceptions[index]
		if rec.Kind == models.ExceptionSkip || rec.Template == nil {
			ctx.Printf("    #%d skipped\n", index)
			continue
		}
		ctx.Printf("    #%d moved to %s as %q\n", index, ctx.FormatTime(rec.Template.At), rec.Template.Name)
	}
}

func printOccurrence(ctx *cli.Context, v planner.OccurrenceView) {
	line := fmt.Sprintf("%s #%-4d %s  %s", cli.Status(v.Completed), v.Index, ctx.FormatTime(v.Activity.At), v.Activity.Name)
	if v.Overridden {
		line += cli.MutedStyle.Render(" (rescheduled)")
	}
	ctx.Println("  " + line)
}
