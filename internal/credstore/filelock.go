package credstore

import (
	"fmt"
	"os"
	"time"
)

// Lock coordination tuning. A lock older than staleAfter is assumed to
// belong to a crashed process and is reaped.
const (
	lockRetryDelay = 100 * time.Millisecond
	lockMaxWait    = 5 * time.Second
	staleAfter     = 30 * time.Second
)

// fileLock is an advisory cross-process lock backed by an O_EXCL
// sidecar file next to the credentials file.
type fileLock struct {
	lockFile *os.File
	lockPath string
}

// acquireFileLock takes an exclusive lock for the given credentials
// file, waiting up to lockMaxWait for a competing holder to release it.
func acquireFileLock(filePath string) (*fileLock, error) {
	lockPath := filePath + ".lock"
	deadline := time.Now().Add(lockMaxWait)

	for time.Now().Before(deadline) {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			// Record the holder PID so a stuck lock can be diagnosed.
			fmt.Fprintf(f, "%d", os.Getpid())
			return &fileLock{lockFile: f, lockPath: lockPath}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire file lock: %w", err)
		}

		// Held by someone else. Reap it if the holder looks dead,
		// otherwise wait a beat and try again.
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > staleAfter {
			if remErr := os.Remove(lockPath); remErr != nil && !os.IsNotExist(remErr) {
				return nil, fmt.Errorf("failed to remove stale lock file %s: %w", lockPath, remErr)
			}
			continue
		}
		time.Sleep(lockRetryDelay)
	}

	return nil, fmt.Errorf("timeout waiting for file lock after %v", lockMaxWait)
}

// release closes and removes the lock file.
func (fl *fileLock) release() error {
	if fl.lockFile != nil {
		fl.lockFile.Close()
	}
	return os.Remove(fl.lockPath)
}
