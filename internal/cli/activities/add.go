package activities

import (
	"fmt"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/models"
)

type AddCmd struct {
	Name     string          `arg:"" help:"Activity name."`
	At       string          `short:"a" help:"Start instant (YYYY-MM-DD HH:MM, RFC3339, 'now' or 'today')." required:""`
	Kind     string          `short:"k" help:"Activity kind (task|event)." enum:"task,event" default:"task"`
	Duration int             `short:"d" help:"Duration in minutes." default:"0"`
	Deadline string          `help:"Deadline after the start, e.g. '2d'."`
	Reminder string          `help:"Reminder lead time before the start, e.g. '15m'."`
	Start    string          `help:"How long before the start work may begin, e.g. '1w'."`
	Category string          `short:"c" help:"Category label."`
	Zone     string          `short:"z" help:"IANA timezone the activity belongs to, e.g. 'America/Chicago'."`
	Repeat   cli.RepeatFlags `embed:""`
}

func (c *AddCmd) Validate() error {
	if c.Duration < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	if c.Repeat.Every < 0 {
		return fmt.Errorf("--every cannot be negative")
	}
	if c.Repeat.Every == 0 && (c.Repeat.Count != 0 || c.Repeat.Until != "") {
		return fmt.Errorf("--count and --until require --every")
	}
	return nil
}

func (c *AddCmd) Run(ctx *cli.Context) error {
	at, err := ctx.ParseTime(c.At)
	if err != nil {
		return fmt.Errorf("invalid --at: %w", err)
	}

	template := models.ActivityTemplate{
		Name:        c.Name,
		Kind:        models.ActivityKind(c.Kind),
		At:          at,
		DurationMin: c.Duration,
		Category:    c.Category,
		Zone:        c.Zone,
	}
	if err := setOffsets(&template, c.Deadline, c.Reminder, c.Start); err != nil {
		return err
	}

	if c.Repeat.Every == 0 {
		def, err := ctx.Planner.AddSingle(template)
		if err != nil {
			return err
		}
		ctx.Printf("Added activity: %s (ID: %s)\n", template.Name, def.ID)
		return nil
	}

	repeat, err := c.Repeat.Repeat(at)
	if err != nil {
		return err
	}
	end, err := c.Repeat.End(ctx)
	if err != nil {
		return err
	}
	def, err := ctx.Planner.AddRepeating(template, repeat, end)
	if err != nil {
		return err
	}
	ctx.Printf("Added repeating activity: %s (ID: %s)\n", template.Name, def.ID)
	ctx.Printf("  %s, %s\n", cli.FormatRepeat(repeat), ctx.FormatEnd(end))
	return nil
}

// setOffsets parses the offset flags into t. Empty flags leave the
// corresponding offset untouched.
func setOffsets(t *models.ActivityTemplate, deadline, reminder, start string) error {
	for _, f := range []struct {
		flag  string
		value string
		dst   **models.Offset
	}{
		{"--deadline", deadline, &t.Deadline},
		{"--reminder", reminder, &t.Reminder},
		{"--start", start, &t.Start},
	} {
		if f.value == "" {
			continue
		}
		o, err := cli.ParseOffset(f.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", f.flag, err)
		}
		*f.dst = o
	}
	return nil
}
