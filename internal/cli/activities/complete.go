package activities

import (
	"fmt"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/completions"
	"github.com/julianstephens/cadence/internal/recurrence"
)

// Target selects one occurrence by index or by an instant within it.
type Target struct {
	ID    string `arg:"" help:"Activity ID."`
	Index *int   `arg:"" optional:"" help:"Occurrence index. Defaults to the occurrence at --at, or 0 for one-off activities."`
	At    string `short:"a" help:"Select the occurrence that an instant falls into instead of an index."`
}

func (t Target) resolve(ctx *cli.Context) (int, error) {
	if t.Index != nil && *t.Index < 0 {
		return 0, fmt.Errorf("%w: %d", completions.ErrNegativeIndex, *t.Index)
	}
	if t.At != "" {
		if t.Index != nil {
			return 0, fmt.Errorf("an index and --at cannot be combined")
		}
		at, err := ctx.ParseTime(t.At)
		if err != nil {
			return 0, fmt.Errorf("invalid --at: %w", err)
		}
		index, err := ctx.Planner.IndexAt(t.ID, at)
		if err != nil {
			return 0, err
		}
		if index == recurrence.NoOccurrence {
			return 0, fmt.Errorf("no occurrence at or after %s", ctx.FormatTime(at))
		}
		return index, nil
	}
	if t.Index != nil {
		return *t.Index, nil
	}

	def, err := ctx.Planner.GetActivity(t.ID)
	if err != nil {
		return 0, err
	}
	if def.IsRepeating() {
		return 0, fmt.Errorf("an occurrence index or --at is required for repeating activities")
	}
	return 0, nil
}

type DoneCmd struct {
	Target `embed:""`
}

func (c *DoneCmd) Run(ctx *cli.Context) error {
	return setCompleted(ctx, c.Target, true)
}

type UndoneCmd struct {
	Target `embed:""`
}

func (c *UndoneCmd) Run(ctx *cli.Context) error {
	return setCompleted(ctx, c.Target, false)
}

func setCompleted(ctx *cli.Context, t Target, completed bool) error {
	index, err := t.resolve(ctx)
	if err != nil {
		return err
	}
	delta, err := ctx.Planner.SetCompleted(t.ID, index, completed)
	if err != nil {
		return err
	}

	state := "not done"
	if completed {
		state = "done"
	}
	ctx.Printf("%s Marked occurrence #%d %s\n", cli.Status(completed), index, state)
	ctx.Println(cli.MutedStyle.Render(fmt.Sprintf("  completed through %d, exceptions +%v -%v",
		delta.NewLatestFinishedIndex, delta.Added, delta.Removed)))
	return nil
}
