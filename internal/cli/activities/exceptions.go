package activities

import (
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/models"
)

func sortedKeys(m map[int]models.ExceptionRecord) []int {
	var keys []int
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type SkipCmd struct {
	Target `embed:""`
}

func (c *SkipCmd) Run(ctx *cli.Context) error {
	index, err := c.resolve(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Planner.Skip(c.ID, index); err != nil {
		return err
	}
	ctx.Printf("Skipped occurrence #%d\n", index)
	return nil
}

type UnskipCmd struct {
	Target `embed:""`
}

func (c *UnskipCmd) Run(ctx *cli.Context) error {
	index, err := c.resolve(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Planner.ClearException(c.ID, index); err != nil {
		return err
	}
	ctx.Printf("Occurrence #%d follows the series again\n", index)
	return nil
}

// OverrideCmd reschedules or edits one occurrence. Unset flags keep the
// values of the existing override, or of the series.
type OverrideCmd struct {
	ID       string `arg:"" help:"Activity ID."`
	Index    int    `arg:"" help:"Occurrence index."`
	Name     string `help:"New name."`
	At       string `short:"a" help:"New start instant."`
	Kind     string `short:"k" help:"New kind (task|event)."`
	Duration int    `short:"d" help:"New duration in minutes." default:"-1"`
	Deadline string `help:"New deadline offset."`
	Reminder string `help:"New reminder offset."`
	Start    string `help:"New start offset."`
	Category string `short:"c" help:"New category."`
	Zone     string `short:"z" help:"New IANA timezone."`
}

func (c *OverrideCmd) Validate() error {
	if c.Kind != "" && c.Kind != string(models.ActivityKindTask) && c.Kind != string(models.ActivityKindEvent) {
		return fmt.Errorf("kind must be task or event")
	}
	return nil
}

func (c *OverrideCmd) Run(ctx *cli.Context) error {
	def, err := ctx.Planner.GetActivity(c.ID)
	if err != nil {
		return err
	}
	if !def.IsRepeating() {
		return fmt.Errorf("only occurrences of repeating activities can be overridden")
	}

	template := def.Repeating.Template.Clone()
	// A zero start is filled with the scheduled start of the occurrence.
	template.At = time.Time{}
	if rec, ok := def.Repeating.Exceptions[c.Index]; ok && rec.Template != nil {
		template = rec.Template.Clone()
	}

	if c.Name != "" {
		template.Name = c.Name
	}
	if c.At != "" {
		at, err := ctx.ParseTime(c.At)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		template.At = at
	}
	if c.Kind != "" {
		template.Kind = models.ActivityKind(c.Kind)
	}
	if c.Duration >= 0 {
		template.DurationMin = c.Duration
	}
	if c.Category != "" {
		template.Category = c.Category
	}
	if c.Zone != "" {
		template.Zone = c.Zone
	}
	if err := setOffsets(&template, c.Deadline, c.Reminder, c.Start); err != nil {
		return err
	}

	if err := ctx.Planner.Override(c.ID, c.Index, template); err != nil {
		return err
	}
	ctx.Printf("Overrode occurrence #%d of %s\n", c.Index, def.Template().Name)
	return nil
}
