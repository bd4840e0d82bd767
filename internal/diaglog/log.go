// Package diaglog writes the tool's diagnostic log: an append-only text file
// that collects status messages across runs.
package diaglog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileName is the default log file name inside the temp directory.
const FileName = "AzureArcAgentChecker_log.txt"

// LockTimeout bounds the wait for the cross-process lock. When it expires the
// write goes ahead unlocked so that a stuck process never blocks a scan.
const LockTimeout = 100 * time.Millisecond

// DefaultPath returns the log path in the user's temp directory.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), FileName)
}

// Log appends to a file that is opened fresh for every write. It implements
// zapcore.WriteSyncer.
type Log struct {
	path string
	mu   sync.Mutex
}

// New returns a Log writing to path, or to DefaultPath when path is empty.
func New(path string) *Log {
	if path == "" {
		path = DefaultPath()
	}
	return &Log{path: path}
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Write appends p as one unit. Concurrent writers, in this process or
// another, never interleave within a single Write.
func (l *Log) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, err := l.acquireLock()
	if err != nil {
		return 0, err
	}
	defer lock.release() //nolint:errcheck

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302: shared diagnostic log
	if err != nil {
		return 0, fmt.Errorf("opening diagnostic log: %w", err)
	}
	n, werr := f.Write(p)
	cerr := f.Close()
	if werr != nil {
		return n, werr
	}
	return n, cerr
}

// Sync is a no-op: every Write closes the file.
func (l *Log) Sync() error { return nil }

// SessionStart writes the marker line that opens a run.
func (l *Log) SessionStart(version string, now time.Time) error {
	line := fmt.Sprintf("========== arccheck %s - %s ==========\n", version, now.Format("2006-01-02 15:04:05"))
	_, err := l.Write([]byte(line))
	return err
}

type fileLock struct {
	flock *flock.Flock
}

// acquireLock takes the sibling .lock file. It returns a nil lock, and no
// error, when the timeout expires.
func (l *Log) acquireLock() (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil { //nolint:gosec // G301: temp dir
		return nil, err
	}

	fl := flock.New(l.path + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, nil
		}
		return nil, err
	}
	if !locked {
		return nil, nil
	}
	return &fileLock{flock: fl}, nil
}

func (fl *fileLock) release() error {
	if fl == nil || fl.flock == nil {
		return nil
	}
	return fl.flock.Unlock()
}
