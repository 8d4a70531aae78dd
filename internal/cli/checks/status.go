package checks

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/suppcheck/internal/cli"
	"github.com/julianstephens/suppcheck/internal/dailycheck"
	"github.com/julianstephens/suppcheck/internal/models"
)

// NotSavingBanner is shown whenever changes only live in memory.
const NotSavingBanner = "Not saving (storage unavailable)"

type StatusCmd struct {
	JSON bool `help:"Print today's record as JSON." name:"json"`
}

type statusOutput struct {
	Date       string            `json:"date"`
	Checks     models.CheckState `json:"checks"`
	Completed  int               `json:"completed"`
	Persistent bool              `json:"persistent"`
}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	persistent := ctx.LoadStore()
	ds := ctx.DailyStore()
	ds.Reconcile(ctx.Clock())

	rec := ds.Record()
	persistent = persistent && ds.Persistent()
	out := ctx.Stdout()

	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statusOutput{
			Date:       rec.Date,
			Checks:     rec.Checks,
			Completed:  dailycheck.CompletionCount(rec.Checks),
			Persistent: persistent,
		})
	}

	fmt.Fprint(out, cli.FormatChecks(rec, ds.Location()))
	if !persistent {
		fmt.Fprintln(out, NotSavingBanner)
	}
	return nil
}
