package core

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLockFile_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockFileName)

	unlock, err := lockFile(path)
	if err != nil {
		t.Fatalf("lockFile: %v", err)
	}

	acquired := make(chan func() error)
	go func() {
		second, err := lockFile(path)
		if err != nil {
			t.Errorf("second lockFile: %v", err)
			close(acquired)
			return
		}
		acquired <- second
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	select {
	case second := <-acquired:
		if second == nil {
			return
		}
		if err := second(); err != nil {
			t.Errorf("second unlock: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second lock not acquired after release")
	}
}

func TestLockFile_MissingDirectory(t *testing.T) {
	if _, err := lockFile(filepath.Join(t.TempDir(), "missing", LockFileName)); err == nil {
		t.Error("expected error for a lock file in a missing directory")
	}
}
