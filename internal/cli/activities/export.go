package activities

import (
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/export"
	"github.com/julianstephens/cadence/internal/logger"
)

type ExportCmd struct {
	From   string `short:"f" help:"Window start. Defaults to the start of today."`
	Days   int    `help:"Window length in days." default:"30"`
	Output string `short:"o" help:"Output file, '-' for stdout." default:"-"`
	Name   string `help:"Calendar name." default:"cadence"`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	from, until, err := ctx.Window(c.From, c.Days)
	if err != nil {
		return err
	}
	items, truncated, err := ctx.Planner.Agenda(from, until)
	if err != nil {
		return err
	}
	if truncated {
		logger.Warn("Export window truncated", "from", from, "until", until)
	}

	name := c.Name
	if name == "" {
		name = constants.AppName
	}
	opts := export.Options{Name: name, Stamp: ctx.Clock()}

	if c.Output == "" || c.Output == "-" {
		return export.Write(ctx.Writer(), items, opts)
	}

	f, err := os.Create(c.Output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.Output, err)
	}
	if err := writeAndClose(f, func(w io.Writer) error { return export.Write(w, items, opts) }); err != nil {
		return err
	}
	ctx.Printf("Exported %d occurrence(s) to %s\n", len(items), c.Output)
	return nil
}

func writeAndClose(f *os.File, write func(io.Writer) error) error {
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}
