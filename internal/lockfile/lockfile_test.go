package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	strataerrors "github.com/stratadb/strata/internal/errors"
)

func tempLockPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "strata-lock-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "container.sdc.lock")
}

func TestAcquireAndRelease(t *testing.T) {
	path := tempLockPath(t)

	l, err := AcquireExclusive(path, Options{RetryCount: 0, RetryWait: time.Millisecond})
	if err != nil {
		t.Fatalf("AcquireExclusive failed: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	// Double release is a no-op.
	if err := l.Release(); err != nil {
		t.Fatalf("second Release failed: %v", err)
	}
}

func TestSharedLocksCoexist(t *testing.T) {
	path := tempLockPath(t)

	r1, err := AcquireShared(path, ReadOptions())
	if err != nil {
		t.Fatalf("first shared lock failed: %v", err)
	}
	defer r1.Release()

	r2, err := AcquireShared(path, Options{RetryCount: 0, RetryWait: time.Millisecond})
	if err != nil {
		t.Fatalf("second shared lock should coexist: %v", err)
	}
	defer r2.Release()
}

func TestExclusiveTimesOutUnderContention(t *testing.T) {
	path := tempLockPath(t)

	held, err := AcquireExclusive(path, WriteOptions())
	if err != nil {
		t.Fatalf("setup lock failed: %v", err)
	}
	defer held.Release()

	// A second handle opens its own file description, so it contends
	// even within one process; the retry budget must be exhausted.
	start := time.Now()
	_, err = AcquireExclusive(path, Options{RetryCount: 2, RetryWait: 10 * time.Millisecond})
	if err == nil {
		t.Fatal("expected lock timeout while lock is held")
	}
	if strataerrors.GetCode(err) != strataerrors.CodeLockTimeout {
		t.Errorf("code = %q, want %q", strataerrors.GetCode(err), strataerrors.CodeLockTimeout)
	}
	if !strataerrors.IsRetryable(err) {
		t.Error("lock timeout should be retryable by the caller")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("retry budget not spent, elapsed %v", elapsed)
	}
}

func TestAcquireAfterRelease(t *testing.T) {
	path := tempLockPath(t)

	l1, err := AcquireExclusive(path, WriteOptions())
	if err != nil {
		t.Fatalf("first lock failed: %v", err)
	}
	if err := l1.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	l2, err := AcquireExclusive(path, Options{RetryCount: 0, RetryWait: time.Millisecond})
	if err != nil {
		t.Fatalf("lock after release failed: %v", err)
	}
	defer l2.Release()
}

func TestLockTimeoutMatchesTaxonomy(t *testing.T) {
	path := tempLockPath(t)

	held, err := AcquireExclusive(path, WriteOptions())
	if err != nil {
		t.Fatalf("setup lock failed: %v", err)
	}
	defer held.Release()

	_, err = AcquireShared(path, Options{RetryCount: 1, RetryWait: time.Millisecond})
	if err == nil {
		t.Fatal("shared acquisition should time out against a held exclusive lock")
	}
	var se *strataerrors.StrataError
	if !errors.As(err, &se) || se.Category != strataerrors.ErrCategoryLock {
		t.Errorf("expected LOCK category error, got %v", err)
	}
}

func TestSidecarPath(t *testing.T) {
	if got := SidecarPath("/data/datasets/ds_x.sdc"); got != "/data/datasets/ds_x.sdc.lock" {
		t.Errorf("SidecarPath = %q", got)
	}
}
