// Package backup snapshots a file-backed store before it is destroyed.
package backup

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// MaxBackups is how many snapshots are kept per store file
	MaxBackups = 3
	// DirName is created next to the store file
	DirName = "backups"

	timestampFormat = "20060102-150405"
)

type Info struct {
	Path      string
	Timestamp time.Time
	seq       int
}

type Manager struct {
	storePath string
	dir       string
	now       func() time.Time
}

func NewManager(storePath string) *Manager {
	return &Manager{
		storePath: storePath,
		dir:       filepath.Join(filepath.Dir(storePath), DirName),
		now:       time.Now,
	}
}

func (m *Manager) Dir() string {
	return m.dir
}

// prefix and ext split "suppcheck.db" into "suppcheck-" and ".db".
func (m *Manager) prefix() string {
	base := filepath.Base(m.storePath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "-"
}

func (m *Manager) ext() string {
	return filepath.Ext(m.storePath)
}

// Create writes a snapshot of the store file and prunes old ones.
func (m *Manager) Create() (string, error) {
	if _, err := os.Stat(m.storePath); err != nil {
		return "", fmt.Errorf("nothing to back up: %w", err)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	stamp := m.now().Format(timestampFormat)
	dest := filepath.Join(m.dir, m.prefix()+stamp+m.ext())
	for n := 1; ; n++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		if n > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		dest = filepath.Join(m.dir, fmt.Sprintf("%s%s-%d%s", m.prefix(), stamp, n, m.ext()))
	}

	if err := m.snapshot(dest); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", m.storePath, err)
	}
	if err := m.rotate(); err != nil {
		return dest, fmt.Errorf("backup created but rotation failed: %w", err)
	}
	return dest, nil
}

// snapshot uses VACUUM INTO for SQLite files and a plain copy for anything
// else, or for a SQLite file too damaged to vacuum.
func (m *Manager) snapshot(dest string) error {
	if m.ext() == ".json" {
		return copyFile(m.storePath, dest)
	}

	db, err := sql.Open("sqlite", m.storePath+"?mode=ro")
	if err != nil {
		return copyFile(m.storePath, dest)
	}
	defer db.Close()

	if _, err := db.Exec("VACUUM INTO ?", dest); err != nil {
		_ = os.Remove(dest)
		return copyFile(m.storePath, dest)
	}
	return nil
}

// List returns snapshots of this store, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, m.prefix()) || !strings.HasSuffix(name, m.ext()) {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(name, m.prefix()), m.ext())
		seq := 0
		if len(stamp) > len(timestampFormat) {
			n, err := strconv.Atoi(strings.TrimPrefix(stamp[len(timestampFormat):], "-"))
			if err != nil {
				continue
			}
			seq = n
			stamp = stamp[:len(timestampFormat)]
		}
		ts, err := time.ParseInLocation(timestampFormat, stamp, time.Local)
		if err != nil {
			continue
		}

		backups = append(backups, Info{Path: filepath.Join(m.dir, name), Timestamp: ts, seq: seq})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].Timestamp.After(backups[j].Timestamp)
		}
		return backups[i].seq > backups[j].seq
	})
	return backups, nil
}

func (m *Manager) rotate() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for i := MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Sync()
}
