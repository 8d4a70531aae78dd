package checks

import (
	"fmt"

	"github.com/julianstephens/suppcheck/internal/cli"
	"github.com/julianstephens/suppcheck/internal/models"
)

type ToggleCmd struct {
	Slot string `arg:"" enum:"morning,lunch,dinner" help:"Slot to flip: morning, lunch or dinner."`
}

func (c *ToggleCmd) Run(ctx *cli.Context) error {
	slot, err := models.ParseTimeSlot(c.Slot)
	if err != nil {
		return err
	}

	persistent := ctx.LoadStore()
	ds := ctx.DailyStore()
	if _, err := ds.Toggle(slot, ctx.Clock()); err != nil {
		return err
	}

	out := ctx.Stdout()
	fmt.Fprint(out, cli.FormatChecks(ds.Record(), ds.Location()))
	if !persistent || !ds.Persistent() {
		fmt.Fprintln(out, NotSavingBanner)
	}
	return nil
}
