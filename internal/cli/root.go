package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/julianstephens/suppcheck/internal/constants"
	"github.com/julianstephens/suppcheck/internal/dailycheck"
	"github.com/julianstephens/suppcheck/internal/logger"
	"github.com/julianstephens/suppcheck/internal/models"
	"github.com/julianstephens/suppcheck/internal/storage"
	"github.com/julianstephens/suppcheck/internal/storage/postgres"
	"github.com/julianstephens/suppcheck/internal/storage/sqlite"
)

// PostgresKeyword as --config reads the connection string from the
// environment or the OS keyring instead of the command line.
const PostgresKeyword = "postgresql"

type Context struct {
	Store     storage.Provider
	Location  *time.Location
	Policy    dailycheck.StaleTogglePolicy
	ConfigDir string
	Now       func() time.Time
	Out       io.Writer
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// NewProvider picks a storage backend from a --config value.
func NewProvider(location string) (storage.Provider, error) {
	switch {
	case location == PostgresKeyword:
		connStr, err := postgresConnString()
		if err != nil {
			return nil, err
		}
		return postgres.New(connStr), nil
	case postgres.IsConnString(location):
		if err := postgres.ValidateConnString(location); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("%w: use %s, the OS keyring ('suppcheck keyring set'), or .pgpass", err, constants.EnvDBConnection)
			}
			return nil, err
		}
		return postgres.New(location), nil
	case storage.IsKeyringLocation(location):
		return storage.NewKeyringStore(location), nil
	case strings.HasSuffix(location, ".json"):
		return storage.NewJSONStore(ExpandHome(location)), nil
	default:
		return sqlite.NewStore(ExpandHome(location)), nil
	}
}

func postgresConnString() (string, error) {
	if connStr := os.Getenv(constants.EnvDBConnection); connStr != "" {
		return connStr, nil
	}
	connStr, err := storage.GetConnectionString()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("no PostgreSQL connection configured: set %s or run 'suppcheck keyring set'", constants.EnvDBConnection)
		}
		return "", err
	}
	return connStr, nil
}

// ConfigDir returns where logs and the lockfile live for a --config value.
func ConfigDir(location string) string {
	if location == PostgresKeyword || postgres.IsConnString(location) || storage.IsKeyringLocation(location) {
		if dir, err := os.UserConfigDir(); err == nil {
			return filepath.Join(dir, constants.AppName)
		}
		return "."
	}
	return filepath.Dir(ExpandHome(location))
}

// LoadLocation resolves a timezone name, "Local" or empty meaning the system zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == constants.DefaultTimezone {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// LoadStore prepares the configured store, initialising it on first use. If
// it cannot be used the session continues on an in-memory store and false is
// returned.
func (c *Context) LoadStore() bool {
	err := c.Store.Load()
	if errors.Is(err, storage.ErrNotInitialized) {
		logger.Info("Initializing storage on first use", "path", c.Store.GetConfigPath())
		err = c.Store.Init()
	}
	if err != nil {
		logger.Warn("Storage unavailable, changes will not be saved", "path", c.Store.GetConfigPath(), "error", err)
		if cerr := c.Store.Close(); cerr != nil {
			logger.Warn("Failed to close unusable storage", "error", cerr)
		}
		c.Store = storage.NewMemoryStore()
		return false
	}
	return true
}

// DailyStore builds the check store over the context's provider.
func (c *Context) DailyStore() *dailycheck.Store {
	return dailycheck.NewStore(c.Store,
		dailycheck.WithLocation(c.Location),
		dailycheck.WithStaleTogglePolicy(c.Policy),
	)
}

func (c *Context) Clock() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Context) Stdout() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

// FormatChecks renders a record as one line per slot plus a completion line.
func FormatChecks(rec models.DailyRecord, loc *time.Location) string {
	var b strings.Builder
	for _, slot := range models.Slots {
		mark := "○"
		if rec.Checks.Get(slot) {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, slot.Label())
	}

	display := rec.Date
	if d, err := time.ParseInLocation(constants.DateFormat, rec.Date, loc); err == nil {
		display = d.Format(constants.DisplayDateFormat)
	}
	fmt.Fprintf(&b, "%d/%d today (%s)\n", dailycheck.CompletionCount(rec.Checks), len(models.Slots), display)
	return b.String()
}
