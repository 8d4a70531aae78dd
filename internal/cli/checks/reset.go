package checks

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/suppcheck/internal/cli"
)

type ResetCmd struct {
	Yes bool `help:"Skip the confirmation prompt." short:"y"`
}

func (c *ResetCmd) Run(ctx *cli.Context) error {
	if !c.Yes {
		var confirm bool
		err := huh.NewConfirm().
			Title("Clear today's checks?").
			Description("Morning, lunch and dinner will all be unchecked.").
			Affirmative("Clear").
			Negative("Cancel").
			Value(&confirm).
			Run()
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !confirm {
			fmt.Fprintln(ctx.Stdout(), "Reset cancelled")
			return nil
		}
	}

	persistent := ctx.LoadStore()
	ds := ctx.DailyStore()
	ds.Reset(ctx.Clock())

	out := ctx.Stdout()
	fmt.Fprint(out, cli.FormatChecks(ds.Record(), ds.Location()))
	if !persistent || !ds.Persistent() {
		fmt.Fprintln(out, NotSavingBanner)
	}
	return nil
}
