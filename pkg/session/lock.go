package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LockFile is the marker Chromium-family browsers leave in a profile they own.
// It is a symlink whose target is "<hostname>-<pid>".
const LockFile = "SingletonLock"

// ErrProfileInUse is wrapped by ProfileLockError.
var ErrProfileInUse = errors.New("browser profile is in use")

// ProfileLockError reports a lock found on a profile the tool does not own.
type ProfileLockError struct {
	Path string
	Host string
	PID  int
	// Live is true when the owning process is known to be running.
	Live bool
}

func (e *ProfileLockError) Error() string {
	if e.Live {
		return fmt.Sprintf("browser profile %s is in use by process %d; close the browser and try again", e.Path, e.PID)
	}
	return fmt.Sprintf("browser profile %s has a stale lock (%s); close the browser or remove it and try again", e.Path, LockFile)
}

func (e *ProfileLockError) Unwrap() error {
	return ErrProfileInUse
}

// lockInfo describes a SingletonLock found on disk.
type lockInfo struct {
	host string
	pid  int
}

// readLock returns nil when dir has no lock. A lock whose target cannot be
// parsed is still reported, with a zero pid.
func readLock(dir string) (*lockInfo, error) {
	path := filepath.Join(dir, LockFile)
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	target, err := os.Readlink(path)
	if err != nil {
		// Some platforms write a regular file instead of a symlink.
		return &lockInfo{}, nil
	}
	host, pid := parseLockTarget(target)
	return &lockInfo{host: host, pid: pid}, nil
}

func parseLockTarget(target string) (string, int) {
	i := strings.LastIndex(target, "-")
	if i < 0 {
		return target, 0
	}
	pid, err := strconv.Atoi(target[i+1:])
	if err != nil {
		return target, 0
	}
	return target[:i], pid
}

// live reports whether the lock's owner is running. Locks from another host
// are assumed live.
func (l *lockInfo) live() bool {
	if l.pid <= 0 {
		return false
	}
	if h, err := os.Hostname(); err == nil && l.host != "" && l.host != h {
		return true
	}
	return processAlive(l.pid)
}

// removeLock deletes a lock left in a tool-owned profile.
func removeLock(dir string) error {
	err := os.Remove(filepath.Join(dir, LockFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
