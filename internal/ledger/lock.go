package ledger

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	// StaleLockThreshold is the age after which a lock left behind by a
	// crashed process is broken.
	StaleLockThreshold = time.Minute
	// DefaultLockWait bounds how long a writer waits for another process.
	DefaultLockWait = 2 * time.Second

	lockPoll = 25 * time.Millisecond
)

// ErrLocked is returned when another process holds the ledger lock for
// longer than the wait allows.
var ErrLocked = errors.New("version ledger is locked by another process")

// fileLock is an exclusive lock file next to the ledger document.
type fileLock struct {
	path string
	file *os.File
}

// acquireLock creates path with O_EXCL, waiting up to wait for a competing
// holder to release it. Locks older than StaleLockThreshold are removed.
func acquireLock(path string, wait time.Duration) (*fileLock, error) {
	deadline := time.Now().Add(wait)

	for {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err == nil {
			if _, err := fmt.Fprintf(file, "pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339)); err != nil {
				file.Close()
				os.Remove(path)
				return nil, fmt.Errorf("write lock data: %w", err)
			}
			return &fileLock{path: path, file: file}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		if stale, _ := isLockStale(path); stale {
			os.Remove(path)
			continue
		}
		if time.Now().After(deadline) {
			return nil, ErrLocked
		}
		time.Sleep(lockPoll)
	}
}

// release removes the lock file.
func (l *fileLock) release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

func isLockStale(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return time.Since(info.ModTime()) > StaleLockThreshold, nil
}
