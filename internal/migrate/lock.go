package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// staleLockAge is the age past which a leftover lock file is assumed to
// belong to a dead process and is broken.
const staleLockAge = 10 * time.Minute

// ErrLockHeld means another migration appears to be running against the same
// install root.
var ErrLockHeld = errors.New("migration lock held: another migration may be in progress")

// fileLock serializes migrations over one install root via an exclusively
// created lock file.
type fileLock struct {
	path string
	file *os.File
}

// acquireLock takes the migration lock. O_CREATE|O_EXCL makes creation
// atomic; an existing lock older than staleLockAge is broken and re-acquired
// once.
func acquireLock(dir string) (*fileLock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := filepath.Join(dir, "migrate.lock")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if !isLockStale(path) {
			return nil, ErrLockHeld
		}
		os.Remove(path)
		file, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err != nil {
			return nil, ErrLockHeld
		}
	}

	meta := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(meta); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write lock metadata: %w", err)
	}

	return &fileLock{path: path, file: file}, nil
}

// release drops the lock. Safe to call more than once.
func (l *fileLock) release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}
	return nil
}

func isLockStale(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > staleLockAge
}
