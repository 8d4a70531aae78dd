package system

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/julianstephens/suppcheck/internal/cli"
	"github.com/julianstephens/suppcheck/internal/constants"
	"github.com/julianstephens/suppcheck/internal/dailycheck"
	"github.com/julianstephens/suppcheck/internal/lock"
	"github.com/julianstephens/suppcheck/internal/storage"
)

type DoctorCmd struct{}

type schemaVersioner interface {
	SchemaVersion() (current, latest int, err error)
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	out := ctx.Stdout()
	fmt.Fprintln(out, "Running diagnostics...")
	fmt.Fprintln(out)

	hasError := false
	report := func(name string, err error) {
		var warn *warningError
		switch {
		case err == nil:
			fmt.Fprintf(out, "✓ %s: OK\n", name)
		case errors.As(err, &warn):
			fmt.Fprintf(out, "⚠ %s: WARNING\n", name)
			fmt.Fprintf(out, "   %v\n", warn)
		default:
			fmt.Fprintf(out, "❌ %s: FAIL\n", name)
			fmt.Fprintf(out, "   Error: %v\n", err)
			hasError = true
		}
	}
	skip := func(name string) {
		fmt.Fprintf(out, "⊘ %s: SKIPPED (storage not reachable)\n", name)
	}

	reachable := checkStoreReachable(ctx)
	report("Storage reachable", reachable)

	if reachable == nil {
		report("Schema version", checkSchemaVersion(ctx))
		report("Stored record", checkRecord(ctx))
	} else {
		skip("Schema version")
		skip("Stored record")
	}

	report("Clock/timezone", checkClockTimezone(ctx))
	report("Session lock", checkLockfile(ctx))

	fmt.Fprintln(out)
	if hasError {
		fmt.Fprintln(out, "Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Fprintln(out, "All diagnostics passed!")
	return nil
}

// warningError is a check result that is reported but does not fail the run
type warningError struct {
	msg string
}

func (e *warningError) Error() string { return e.msg }

func warning(format string, args ...any) error {
	return &warningError{msg: fmt.Sprintf(format, args...)}
}

func checkStoreReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		if errors.Is(err, storage.ErrNotInitialized) {
			return fmt.Errorf("%s is not initialized (run 'suppcheck init')", ctx.Store.GetConfigPath())
		}
		return fmt.Errorf("failed to load storage: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	versioned, ok := ctx.Store.(schemaVersioner)
	if !ok {
		// Only the SQL stores carry a schema
		return nil
	}

	current, latest, err := versioned.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d (run 'suppcheck init')", current, latest)
	}
	return nil
}

func checkRecord(ctx *cli.Context) error {
	raw, err := ctx.Store.Get(constants.RecordKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to read record: %w", err)
	}

	rec, repaired, err := dailycheck.DecodeRecord(raw)
	if err != nil {
		return fmt.Errorf("%w (it will be replaced on next use; 'suppcheck reset' rewrites it now)", err)
	}
	if len(repaired) > 0 {
		return warning("record is missing slots %v, they read as unchecked", repaired)
	}

	loc := ctx.Location
	if loc == nil {
		loc = time.Local
	}
	today := ctx.Clock().In(loc).Format(constants.DateFormat)
	if rec.Date > today {
		return warning("record date %s is after today (%s); it will be reset on next use", rec.Date, today)
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := ctx.Clock()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if ctx.Location == nil {
		return fmt.Errorf("no timezone configured")
	}
	return nil
}

func checkLockfile(ctx *cli.Context) error {
	path := lock.Path(ctx.ConfigDir)
	info, err := lock.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return warning("lockfile %s is unreadable (%v); the next session will replace it", path, err)
	}
	if !lock.Alive(info) {
		return warning("stale lockfile from pid %d; the next session will replace it", info.PID)
	}
	printLockHolder(ctx.Stdout(), info)
	return nil
}

func printLockHolder(w io.Writer, info lock.Info) {
	fmt.Fprintf(w, "ℹ Session %s is running (pid %d)\n", info.Session, info.PID)
}
