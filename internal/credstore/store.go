// Package credstore persists the single bearer credential used to
// authorize requests against the DojoDesk API. It is purely mechanical
// storage: no validation, no expiry inspection. The credential survives
// process restarts but is scoped to the local machine.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoCredential indicates that no credential is currently stored.
var ErrNoCredential = errors.New("no stored credential")

// credentialKey is the well-known key the credential lives under.
const credentialKey = "dojodesk"

// record is the on-disk layout of the credentials file.
type record struct {
	Credentials map[string]string `json:"credentials"` // key = credentialKey
	SavedAt     time.Time         `json:"saved_at"`
}

// Store is a file-backed credential store. The zero value is not usable;
// construct with New.
type Store struct {
	path string
}

// New creates a Store persisting to the given file path. The parent
// directory is created on first save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store persists to.
func (s *Store) Path() string {
	return s.path
}

// Read returns the stored credential, or ErrNoCredential if none exists.
func (s *Store) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoCredential
		}
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	token, ok := rec.Credentials[credentialKey]
	if !ok || token == "" {
		return "", ErrNoCredential
	}
	return token, nil
}

// Save stores the credential, replacing any previous one.
// Uses file locking to prevent race conditions when multiple processes
// access the same file, and an atomic rename so readers never observe a
// partial write.
func (s *Store) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	// Acquire file lock to prevent concurrent access
	lock, err := acquireFileLock(s.path)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() {
		if releaseErr := lock.release(); releaseErr != nil {
			fmt.Fprintf(os.Stderr, "failed to release lock: %v\n", releaseErr)
		}
	}()

	rec := record{
		Credentials: map[string]string{credentialKey: token},
		SavedAt:     time.Now(),
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first (atomic write pattern)
	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename (replaces old file)
	if err := os.Rename(tempFile, s.path); err != nil {
		if removeErr := os.Remove(tempFile); removeErr != nil {
			return fmt.Errorf(
				"failed to rename temp file: %v; additionally failed to remove temp file: %w",
				err,
				removeErr,
			)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Clear removes the stored credential. Clearing an absent credential is
// not an error.
func (s *Store) Clear() error {
	lock, err := acquireFileLock(s.path)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() {
		if releaseErr := lock.release(); releaseErr != nil {
			fmt.Fprintf(os.Stderr, "failed to release lock: %v\n", releaseErr)
		}
	}()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}
