// Package runlock keeps two assetgen processes from driving the same output
// directory at once.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is the lock file created inside the output directory.
const FileName = ".assetgen.lock"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("output directory is in use by another assetgen run")

// Lock is an acquired advisory lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the lock for outputDir without blocking.
func Acquire(outputDir string) (*Lock, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure output dir: %w", err)
	}
	path := filepath.Join(outputDir, FileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks. The lock file itself is left in place.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
