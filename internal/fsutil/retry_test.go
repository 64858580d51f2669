package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
)

func TestRetryStopsWhenDone(t *testing.T) {
	calls := 0
	err := Retry(5, 0, func() (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(4, 0, func() (bool, error) {
		calls++
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if calls != 4 {
		t.Fatalf("calls = %d, want 4", calls)
	}
}

func TestRemoveMissingFileIsSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.mp3")
	if err := Remove(path, 3, time.Millisecond); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}

func TestRemoveDeletesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slide_01.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Remove(path, 3, time.Millisecond); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file still present after remove")
	}
}

func TestWaitReadableReturnsContentionError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never.mp4")
	err := WaitReadable(path, 2, time.Millisecond)
	var cerr *domain.ContentionError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %T, want ContentionError", err)
	}
	if cerr.Path != path || cerr.Op != "open" {
		t.Fatalf("contention error = %+v", cerr)
	}
}

func TestWaitNonEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.mp4")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if WaitNonEmpty(empty, 2, time.Millisecond) {
		t.Fatal("empty file reported non-empty")
	}

	full := filepath.Join(dir, "full.mp4")
	if err := os.WriteFile(full, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !WaitNonEmpty(full, 2, time.Millisecond) {
		t.Fatal("non-empty file reported empty")
	}
}
