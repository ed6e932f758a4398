package health

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Store persists one JSON document per user under a data directory.
// The files are written indented so they stay hand-editable; a missing
// or corrupt file is replaced with a default document rather than
// surfaced as an error.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a health state store rooted at dir, creating the
// directory if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Path returns the state file path for a user.
func (s *Store) Path(userID string) string {
	return filepath.Join(s.dir, "watch_state_"+sanitizeID(userID)+".json")
}

// sanitizeID lowercases a user ID and strips characters that are not
// safe in a filename.
func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Load returns the persisted state for a user, or a fresh default if
// no file exists or the file cannot be parsed. Storage faults are
// logged and recovered locally, never returned.
func (s *Store) Load(userID string) *State {
	path := s.Path(userID)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("unreadable state file, starting fresh",
				"user", userID, "path", path, "error", err)
		}
		return NewState(userID)
	}

	state := &State{}
	if err := json.Unmarshal(data, state); err != nil {
		s.logger.Warn("corrupt state file, starting fresh",
			"user", userID, "path", path, "error", err)
		return NewState(userID)
	}
	if state.UserID == "" {
		state.UserID = userID
	}
	return state
}

// Save atomically overwrites the persisted state: write to a temp file
// in the same directory, then rename over the live copy.
func (s *Store) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	path := s.Path(state.UserID)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
