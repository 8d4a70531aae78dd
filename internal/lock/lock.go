// Package lock keeps a single interactive session per config directory.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/suppcheck/internal/constants"
	"github.com/julianstephens/suppcheck/internal/logger"
)

// ErrHeld is returned when another live process owns the lock
var ErrHeld = errors.New("another suppcheck session is running")

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// Info is the content of a lockfile: "pid|session".
type Info struct {
	PID     int
	Session string
}

// Lock is a held lockfile. Release removes it.
type Lock struct {
	path string
	info Info
}

// Path returns the lockfile location for a config directory.
func Path(configDir string) string {
	return filepath.Join(configDir, constants.LockfileName)
}

// Read parses an existing lockfile.
func Read(path string) (Info, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}

	parts := strings.SplitN(strings.TrimSpace(string(content)), "|", 2)
	if len(parts) != 2 {
		return Info{}, errors.New("lockfile is malformed")
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return Info{}, errors.New("invalid process ID in lockfile")
	}
	return Info{PID: pid, Session: parts[1]}, nil
}

// Alive reports whether the process recorded in info is still running.
func Alive(info Info) bool {
	process, err := findProcessFunc(info.PID)
	return err == nil && process != nil
}

// Acquire takes the lockfile at path for session. A lockfile left behind by
// a process that is no longer running, or one that cannot be parsed, is
// taken over.
func Acquire(path, session string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	info := Info{PID: getpidFunc(), Session: session}
	content := []byte(fmt.Sprintf("%d|%s", info.PID, info.Session))

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			_, werr := f.Write(content)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("failed to write lockfile: %w", errors.Join(werr, cerr))
			}
			return &Lock{path: path, info: info}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}

		existing, rerr := Read(path)
		if rerr == nil && existing.PID != info.PID && Alive(existing) {
			return nil, fmt.Errorf("%w (pid %d)", ErrHeld, existing.PID)
		}

		logger.Warn("Taking over stale lockfile", "path", path, "error", rerr, "pid", existing.PID)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: lockfile keeps reappearing", ErrHeld)
}

// Info returns what was written to the lockfile.
func (l *Lock) Info() Info {
	return l.info
}

// Release removes the lockfile if it still belongs to this lock.
func (l *Lock) Release() error {
	current, err := Read(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if current != l.info {
		return nil
	}
	return os.Remove(l.path)
}
