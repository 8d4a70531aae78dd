package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/suppcheck/internal/cli"
	"github.com/julianstephens/suppcheck/internal/cli/checks"
	"github.com/julianstephens/suppcheck/internal/cli/system"
	"github.com/julianstephens/suppcheck/internal/constants"
	"github.com/julianstephens/suppcheck/internal/dailycheck"
	"github.com/julianstephens/suppcheck/internal/logger"
)

var CLI struct {
	Version     kong.VersionFlag
	Config      string `help:"Storage location: a SQLite path, a .json path, keyring:[service], 'postgresql' (connection from SUPPCHECK_DB_CONNECTION or the OS keyring), or a PostgreSQL URL without a password." type:"string" default:"~/.config/suppcheck/suppcheck.db" env:"SUPPCHECK_CONFIG"`
	Timezone    string `help:"IANA timezone that decides when a new day starts." default:"Local" env:"SUPPCHECK_TIMEZONE"`
	StaleToggle string `help:"What a click does when the day rolled over unseen: discard or apply." enum:"discard,apply" default:"discard"`
	Debug       bool   `help:"Log debug output to stderr as well as the log file."`

	Init    system.InitCmd   `cmd:"" help:"Initialize suppcheck storage."`
	Tui     system.TuiCmd    `cmd:"" help:"Launch the interactive checklist." default:"1"`
	Status  checks.StatusCmd `cmd:"" help:"Show today's checks."`
	Toggle  checks.ToggleCmd `cmd:"" help:"Flip one slot for today."`
	Reset   checks.ResetCmd  `cmd:"" help:"Clear today's checks."`
	Doctor  system.DoctorCmd `cmd:"" help:"Run health checks and diagnostics."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
	} `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Track your supplements after morning, lunch and dinner"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	configDir := cli.ConfigDir(CLI.Config)
	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: configDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
	}

	loc, err := cli.LoadLocation(CLI.Timezone)
	if err != nil {
		fail(err)
	}
	policy, err := dailycheck.ParseStaleTogglePolicy(CLI.StaleToggle)
	if err != nil {
		fail(err)
	}

	appCtx := &cli.Context{
		Location:  loc,
		Policy:    policy,
		ConfigDir: configDir,
	}

	// Keyring commands configure storage, so they must not depend on it
	if !strings.HasPrefix(ctx.Command(), "keyring") {
		store, err := cli.NewProvider(CLI.Config)
		if err != nil {
			fail(err)
		}
		appCtx.Store = store
	}

	err = ctx.Run(appCtx)
	if appCtx.Store != nil {
		if cerr := appCtx.Store.Close(); cerr != nil {
			logger.Warn("Failed to close storage", "error", cerr)
		}
	}
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	logger.Error("Command failed", "error", err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
