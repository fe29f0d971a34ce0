// Package lockfile guards against two daemon instances running on one host.
// The lock is a JSON file recording the owning process; release is
// best-effort, so acquisition must detect and reclaim locks whose owner is
// gone.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/driftwatch/provision-relay/pkg/logger"
)

// ErrAlreadyRunning means another live daemon instance holds the lock. The
// caller treats it as a clean exit: the job is already being done.
var ErrAlreadyRunning = errors.New("another agent instance is already running")

// Owner identifies the process holding the lock.
type Owner struct {
	PID        int       `json:"pid"`
	InstanceID string    `json:"instance_id"`
	Hostname   string    `json:"hostname"`
	StartedAt  time.Time `json:"started_at"`
}

// Lock is an acquired instance lock.
type Lock struct {
	path   string
	owner  Owner
	logger *logger.CanonicalLogger
}

// DefaultPath picks a runtime directory for the lock file.
func DefaultPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "provision-agent.lock")
	}
	return filepath.Join(os.TempDir(), "provision-agent.lock")
}

// Acquire takes the lock at path. If a live owner is recorded the call fails
// with ErrAlreadyRunning; a stale lock (dead or unreadable owner) is reclaimed.
func Acquire(path, hostname string, log *logger.CanonicalLogger) (*Lock, error) {
	if existing, err := read(path); err == nil {
		if processAlive(existing.PID) {
			return nil, fmt.Errorf("%w (pid %d since %s)",
				ErrAlreadyRunning, existing.PID, existing.StartedAt.Format(time.RFC3339))
		}
		log.Warn("reclaiming stale lock",
			logger.String("path", path),
			logger.Int("stale_pid", existing.PID),
		)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		// Unreadable lock content counts as stale: a crashed writer may have
		// left a truncated file behind.
		log.WithError(err).Warn("discarding unreadable lock file", logger.String("path", path))
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("failed to remove unreadable lock %s: %w", path, rmErr)
		}
	}

	owner := Owner{
		PID:        os.Getpid(),
		InstanceID: uuid.NewString(),
		Hostname:   hostname,
		StartedAt:  time.Now().UTC(),
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			// Lost the race to another starting instance.
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("failed to create lock %s: %w", path, err)
	}
	if err := json.NewEncoder(f).Encode(owner); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write lock %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to close lock %s: %w", path, err)
	}

	return &Lock{path: path, owner: owner, logger: log}, nil
}

// Release removes the lock if this process still owns it.
func (l *Lock) Release() error {
	current, err := read(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if current.InstanceID != l.owner.InstanceID {
		// Someone reclaimed the lock from under us; leave it alone.
		l.logger.Warn("lock no longer owned by this instance, skipping release",
			logger.String("path", l.path),
		)
		return nil
	}
	return os.Remove(l.path)
}

func read(path string) (Owner, error) {
	var owner Owner
	data, err := os.ReadFile(path)
	if err != nil {
		return owner, err
	}
	if err := json.Unmarshal(data, &owner); err != nil {
		return owner, fmt.Errorf("malformed lock file: %w", err)
	}
	if owner.PID <= 0 {
		return owner, errors.New("lock file missing owner pid")
	}
	return owner, nil
}

// processAlive probes the pid with signal 0.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, syscall.EPERM)
}
