package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/suppcheck/internal/backup"
	"github.com/julianstephens/suppcheck/internal/cli"
	"github.com/julianstephens/suppcheck/internal/constants"
	"github.com/julianstephens/suppcheck/internal/dailycheck"
	"github.com/julianstephens/suppcheck/internal/logger"
	"github.com/julianstephens/suppcheck/internal/models"
	"github.com/julianstephens/suppcheck/internal/storage"
	"github.com/julianstephens/suppcheck/internal/storage/sqlite"
)

type InitCmd struct {
	Force  bool   `help:"Delete existing data before initialization."`
	Source string `help:"Store path or connection string to copy today's record from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	out := ctx.Stdout()

	if c.Force {
		if c.Source != "" && samePath(c.Source, ctx.Store.GetConfigPath()) {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", ctx.Store.GetConfigPath())
		}
		if err := c.clear(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Initialized suppcheck storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		fmt.Fprintf(out, "Copying record from: %s\n", c.Source)
		if err := c.copyRecord(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// clear removes file-backed stores outright; remote stores only lose the record.
func (c *InitCmd) clear(ctx *cli.Context) error {
	out := ctx.Stdout()

	switch ctx.Store.(type) {
	case *sqlite.Store, *storage.JSONStore:
		path := ctx.Store.GetConfigPath()
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to access existing storage: %w", err)
		}
		// Close first so sqlite releases the file
		if err := ctx.Store.Close(); err != nil {
			return fmt.Errorf("failed to close existing storage: %w", err)
		}
		backupPath, err := backup.NewManager(path).Create()
		if backupPath == "" {
			return fmt.Errorf("refusing to delete storage without a backup: %w", err)
		}
		if err != nil {
			logger.Warn("Backup rotation failed", "path", backupPath, "error", err)
		}
		fmt.Fprintf(out, "Backed up existing storage to: %s\n", backupPath)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete existing storage: %w", err)
		}
		fmt.Fprintf(out, "Deleted existing storage at: %s\n", path)
	default:
		if err := ctx.Store.Load(); err != nil {
			if errors.Is(err, storage.ErrNotInitialized) {
				return nil
			}
			return err
		}
		if err := ctx.Store.Delete(constants.RecordKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to delete existing record: %w", err)
		}
		fmt.Fprintf(out, "Deleted existing record from: %s\n", ctx.Store.GetConfigPath())
	}
	return nil
}

func (c *InitCmd) copyRecord(ctx *cli.Context) error {
	source, err := cli.NewProvider(c.Source)
	if err != nil {
		return err
	}
	if err := source.Load(); err != nil {
		return fmt.Errorf("failed to load source storage: %w", err)
	}
	defer source.Close()

	raw, err := source.Get(constants.RecordKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintln(ctx.Stdout(), "  Source has no record, nothing to copy")
			return nil
		}
		return fmt.Errorf("failed to read source record: %w", err)
	}

	rec, _, err := dailycheck.DecodeRecord(raw)
	if err != nil {
		return fmt.Errorf("source record is unusable: %w", err)
	}
	// Re-encode so repaired slots are written out in full
	value, err := dailycheck.EncodeRecord(rec)
	if err != nil {
		return err
	}
	if err := ctx.Store.Put(constants.RecordKey, value); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	fmt.Fprintf(ctx.Stdout(), "  Copied record for %s (%d/%d checked)\n", rec.Date, dailycheck.CompletionCount(rec.Checks), len(models.Slots))
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(cli.ExpandHome(a))
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
