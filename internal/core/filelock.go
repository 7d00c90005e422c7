package core

import (
	"fmt"
	"os"
	"syscall"
)

// LockFileName is the lock file kept in the base directory while a run
// directory is claimed.
const LockFileName = ".runboard.lock"

// lockFile takes an exclusive flock on path, creating the file if needed,
// and blocks until it is granted. The returned func releases the lock.
func lockFile(path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquiring file lock: %w", err)
	}

	return func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}
