// Package lockfile provides scoped, retry-based advisory locking for
// container files shared between independent processes.
package lockfile

import (
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"github.com/stratadb/strata/internal/errors"
)

// Options parameterize the lock acquisition retry budget.
type Options struct {
	// RetryCount is the number of retries after the first failed attempt
	RetryCount int

	// RetryWait is the fixed sleep between attempts
	RetryWait time.Duration
}

// WriteOptions is the default retry budget for exclusive (write) locks.
func WriteOptions() Options {
	return Options{RetryCount: 10, RetryWait: 500 * time.Millisecond}
}

// ReadOptions is the default retry budget for shared (read) locks.
func ReadOptions() Options {
	return Options{RetryCount: 10, RetryWait: 200 * time.Millisecond}
}

// Lock is a held advisory lock. It must be released by the operation that
// acquired it; Release is safe to call from a defer on every exit path.
type Lock struct {
	fl   *flock.Flock
	path string
}

// SidecarPath returns the lock file path guarding a container file. The
// lock lives next to the container so it exists before the container does,
// which lets first creation run under the same discipline.
func SidecarPath(containerPath string) string {
	return containerPath + ".lock"
}

// AcquireExclusive takes the writer lock on path, retrying per opts.
func AcquireExclusive(path string, opts Options) (*Lock, error) {
	return acquire(path, true, opts)
}

// AcquireShared takes a reader lock on path, retrying per opts.
func AcquireShared(path string, opts Options) (*Lock, error) {
	return acquire(path, false, opts)
}

func acquire(path string, exclusive bool, opts Options) (*Lock, error) {
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}

	fl := flock.New(path)
	var lastErr error
	for attempt := 0; attempt <= opts.RetryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(opts.RetryWait)
		}

		var locked bool
		var err error
		if exclusive {
			locked, err = fl.TryLock()
		} else {
			locked, err = fl.TryRLock()
		}
		if err != nil {
			lastErr = err
			continue
		}
		if locked {
			return &Lock{fl: fl, path: path}, nil
		}
	}

	mode := "shared"
	if exclusive {
		mode = "exclusive"
	}
	return nil, errors.NewLockTimeout(
		fmt.Sprintf("could not acquire %s lock on %s after %d attempts", mode, path, opts.RetryCount+1),
		lastErr)
}

// Release drops the lock. Releasing an already released lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	l.fl = nil
	return err
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}
