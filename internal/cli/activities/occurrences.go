package activities

import (
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/recurrence"
)

type OccurrencesCmd struct {
	ID   string `arg:"" help:"Activity ID."`
	From string `short:"f" help:"Window start. Defaults to the start of today."`
	Days int    `help:"Window length in days." default:"7"`
}

func (c *OccurrencesCmd) Run(ctx *cli.Context) error {
	from, until, err := ctx.Window(c.From, c.Days)
	if err != nil {
		return err
	}
	views, truncated, err := ctx.Planner.Occurrences(c.ID, from, until)
	if err != nil {
		return err
	}

	if len(views) == 0 {
		ctx.Printf("No occurrences between %s and %s\n", ctx.FormatTime(from), ctx.FormatTime(until))
		return nil
	}
	ctx.Println(cli.TitleStyle.Render(fmt.Sprintf("Occurrences of %s:", views[0].Activity.Name)))
	for _, v := range views {
		printOccurrence(ctx, v)
	}
	if truncated {
		ctx.Println(cli.WarningStyle.Render(fmt.Sprintf("Output truncated at %d occurrences; narrow the window.", constants.MaxWindowOccurrences)))
	}
	return nil
}

type IndexCmd struct {
	ID string `arg:"" help:"Activity ID."`
	At string `short:"a" help:"Instant to resolve." default:"now"`
}

func (c *IndexCmd) Run(ctx *cli.Context) error {
	at, err := ctx.ParseTime(c.At)
	if err != nil {
		return fmt.Errorf("invalid --at: %w", err)
	}
	index, err := ctx.Planner.IndexAt(c.ID, at)
	if err != nil {
		return err
	}
	if index == recurrence.NoOccurrence {
		ctx.Printf("No occurrence at or after %s: the series has ended\n", ctx.FormatTime(at))
		return nil
	}
	ctx.Printf("%d\n", index)
	return nil
}

type AgendaCmd struct {
	From string `short:"f" help:"Window start. Defaults to the start of today."`
	Days int    `help:"Window length in days." default:"1"`
}

func (c *AgendaCmd) Run(ctx *cli.Context) error {
	from, until, err := ctx.Window(c.From, c.Days)
	if err != nil {
		return err
	}
	items, truncated, err := ctx.Planner.Agenda(from, until)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		ctx.Println("Nothing scheduled")
		return nil
	}

	var day time.Time
	for _, item := range items {
		at := item.Activity.At.In(ctx.Loc())
		if start := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location()); !start.Equal(day) {
			day = start
			ctx.Println(cli.TitleStyle.Render(day.Format("Monday, January 2")))
		}

		line := fmt.Sprintf("  %s %s  %s", cli.Status(item.Completed), at.Format(constants.TimeFormat), item.Activity.Name)
		if item.Repeating {
			line += cli.MutedStyle.Render(fmt.Sprintf(" (%s #%d)", item.DefinitionID, item.Index))
		} else {
			line += cli.MutedStyle.Render(fmt.Sprintf(" (%s)", item.DefinitionID))
		}
		ctx.Println(line)
	}
	if truncated {
		ctx.Println(cli.WarningStyle.Render("Some activities were truncated; narrow the window."))
	}
	return nil
}
