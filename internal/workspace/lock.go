package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/codexbuild/internal/constants"
	"github.com/mrz1836/codexbuild/internal/errors"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Lock is an exclusive, process-level claim on a workspace directory.
type Lock struct {
	path string
	file *os.File
}

// LockPath returns the lock file used for dir: a hidden sibling, so that
// `git clean` inside the workspace never touches it.
func LockPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace path: %w", err)
	}
	return filepath.Join(filepath.Dir(abs), "."+filepath.Base(abs)+constants.LockFileSuffix), nil
}

// AcquireLock takes the workspace lock without waiting. It fails with
// ErrWorkspaceLocked when another run holds it.
func AcquireLock(dir string) (*Lock, error) {
	path, err := LockPath(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, filePerm) //#nosec G304 -- path is derived from the workspace directory
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := lockExclusive(f.Fd()); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(errors.ErrWorkspaceLocked, "%s", dir)
	}
	return &Lock{path: path, file: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. It is safe to call on a nil or released Lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	if err := unlock(f.Fd()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return f.Close()
}
