// Package instance keeps a single `tally serve` running per config directory.
// The lockfile holds "addr|pid"; a lock whose process is gone or is not tally
// is treated as stale and taken over.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/tally/internal/constants"
	"github.com/julianstephens/tally/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// RunningError reports another live server holding the lock.
type RunningError struct {
	Addr string
	PID  int
}

func (e *RunningError) Error() string {
	return fmt.Sprintf("%s is already serving on %s (pid %d)", constants.AppName, e.Addr, e.PID)
}

// LockPath returns the lockfile location for a config directory.
func LockPath(configDir string) string {
	return filepath.Join(configDir, constants.ServerLockName)
}

type lock struct {
	addr string
	pid  int
}

func readLock(path string) (lock, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return lock{}, err
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 2 {
		return lock{}, errors.New("lockfile is malformed")
	}
	addr := strings.TrimSpace(parts[0])
	if addr == "" {
		return lock{}, errors.New("address in lockfile is empty")
	}
	pid, err := strconv.Atoi(parts[1])
	if err != nil || pid < 1 {
		return lock{}, errors.New("invalid process ID in lockfile")
	}
	return lock{addr: addr, pid: pid}, nil
}

// alive reports whether pid is a running tally process other than this one.
func alive(pid int) bool {
	if pid == getpidFunc() {
		return false
	}
	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return false
	}
	return strings.HasPrefix(process.Executable(), constants.AppName)
}

// Acquire takes the lock at path for addr. The returned release removes the
// lockfile if it still belongs to this process.
func Acquire(path, addr string) (release func(), err error) {
	if existing, err := readLock(path); err == nil {
		if alive(existing.pid) {
			return nil, &RunningError{Addr: existing.addr, PID: existing.pid}
		}
		logger.Warn("Replacing stale server lock", "path", path, "pid", existing.pid)
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Ignoring unreadable server lock", "path", path, "error", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	pid := getpidFunc()
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%s|%d", addr, pid)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write server lock: %w", err)
	}

	return func() {
		if current, err := readLock(path); err == nil && current.pid == pid {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.Warn("Failed to remove server lock", "path", path, "error", err)
			}
		}
	}, nil
}
