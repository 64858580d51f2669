// Package fsutil provides bounded-retry file operations. Export hosts release
// file handles asynchronously after reporting completion, so deletes and
// opens of their artifacts can fail transiently.
package fsutil

import (
	"fmt"
	"os"
	"time"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
)

// Retry runs op up to attempts times, sleeping delay between attempts.
// op returns (done, err): done true stops the loop and returns err (usually
// nil). If the budget is exhausted the last error is returned, wrapped so the
// caller sees the attempt count.
func Retry(attempts int, delay time.Duration, op func() (bool, error)) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		done, err := op()
		if done {
			return err
		}
		lastErr = err
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("condition not met after %d attempts", attempts)
	}
	return lastErr
}

// Remove deletes path, retrying transient lock errors. A path that does not
// exist is success.
func Remove(path string, attempts int, delay time.Duration) error {
	err := Retry(attempts, delay, func() (bool, error) {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return true, nil
		}
		if rmErr := os.Remove(path); rmErr != nil {
			return false, rmErr
		}
		return true, nil
	})
	if err != nil {
		return &domain.ContentionError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

// WaitReadable blocks until path can be opened for reading, handling
// lingering locks after the writer reported completion.
func WaitReadable(path string, attempts int, delay time.Duration) error {
	err := Retry(attempts, delay, func() (bool, error) {
		f, openErr := os.Open(path)
		if openErr != nil {
			return false, openErr
		}
		f.Close()
		return true, nil
	})
	if err != nil {
		return &domain.ContentionError{Op: "open", Path: path, Err: err}
	}
	return nil
}

// WaitExists blocks until a file appears at path.
func WaitExists(path string, attempts int, delay time.Duration) bool {
	err := Retry(attempts, delay, func() (bool, error) {
		if _, statErr := os.Stat(path); statErr != nil {
			return false, statErr
		}
		return true, nil
	})
	return err == nil
}

// WaitNonEmpty blocks until the file at path exists with non-zero size.
func WaitNonEmpty(path string, attempts int, delay time.Duration) bool {
	err := Retry(attempts, delay, func() (bool, error) {
		info, statErr := os.Stat(path)
		if statErr != nil {
			return false, statErr
		}
		if info.Size() == 0 {
			return false, fmt.Errorf("%s is empty", path)
		}
		return true, nil
	})
	return err == nil
}
