// Package secrets loads the robot secret-key directory and validates
// robot credentials using constant-time comparison.
package secrets

import (
	"crypto/subtle"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Store is the immutable, read-only-after-load mapping from robot id to secret.
type Store struct {
	secrets map[string][]byte
}

// LoadStore scans dir for "<robot_id>.key" files. A missing directory
// yields an empty (not nil) store so every robot auth will simply fail
// closed rather than crashing the process at startup.
func LoadStore(dir string) (*Store, error) {
	store := &Store{secrets: make(map[string][]byte)}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		slog.Warn("robot secrets directory does not exist, starting with no robot credentials", "dir", dir)
		return store, nil
	}
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".key" {
			continue
		}
		robotID := strings.TrimSuffix(entry.Name(), ".key")
		if !idPattern.MatchString(robotID) {
			slog.Warn("skipping robot secret file with invalid robot id", "file", entry.Name())
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			slog.Warn("skipping unreadable robot secret file", "file", entry.Name(), "error", err)
			continue
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			slog.Warn("skipping empty robot secret file", "file", entry.Name())
			continue
		}

		store.secrets[robotID] = []byte(secret)
	}

	return store, nil
}

// Validate reports whether secret matches the stored secret for robotID,
// using a constant-time comparison so failed lookups and wrong secrets
// take indistinguishable time.
func (s *Store) Validate(robotID, secret string) bool {
	stored, ok := s.secrets[robotID]
	// Always run the comparison, even on a missing id, against a
	// same-length placeholder so the caller can't distinguish
	// "unknown id" from "wrong secret" by timing.
	if !ok {
		stored = make([]byte, len(secret))
	}
	match := subtle.ConstantTimeCompare(stored, []byte(secret)) == 1
	return ok && match
}

// RobotIDs returns every robot id with a loaded secret, for diagnostics and tests.
func (s *Store) RobotIDs() []string {
	ids := make([]string, 0, len(s.secrets))
	for id := range s.secrets {
		ids = append(ids, id)
	}
	return ids
}
