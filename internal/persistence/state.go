// Package persistence stores the interactive shell state between runs:
// the last form inputs and the command history.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Threestaxx/SalesDateFilter/internal/logger"
)

// MaxHistory is the number of history lines kept on save.
const MaxHistory = 500

// ErrNilState is returned when saving a nil state.
var ErrNilState = errors.New("state is nil")

// State is the persisted shell state.
type State struct {
	// Dataset is the path the state was saved for
	Dataset string `json:"dataset,omitempty"`

	// Form inputs, as typed
	Kind  string `json:"kind,omitempty"`
	Value string `json:"value,omitempty"`
	Min   string `json:"min,omitempty"`
	Max   string `json:"max,omitempty"`
	Where string `json:"where,omitempty"`

	// Script refinement, inline or by file
	Script     string `json:"script,omitempty"`
	ScriptFile string `json:"scriptFile,omitempty"`

	// History holds shell command lines, oldest first
	History []string `json:"history,omitempty"`

	// UpdatedAt is when this state was last saved.
	UpdatedAt time.Time `json:"updatedAt"`
}

// StateStore reads and writes one state file.
type StateStore struct {
	path string
	mu   sync.RWMutex
}

// NewStateStore creates a store for path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the state file path.
func (s *StateStore) Path() string { return s.path }

// Save writes state atomically (temp file + rename), creating the directory
// if needed. History is trimmed to the last MaxHistory lines.
func (s *StateStore) Save(state *State) error {
	if state == nil {
		return ErrNilState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		logger.Warn("failed to create state directory",
			"path", s.path,
			"error", err.Error(),
		)
		return fmt.Errorf("creating state directory: %w", err)
	}

	saved := *state
	if n := len(saved.History); n > MaxHistory {
		saved.History = saved.History[n-MaxHistory:]
	}
	saved.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(&saved, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		logger.Warn("failed to write temp state file",
			"path", tempPath,
			"error", err.Error(),
		)
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		logger.Warn("failed to rename state file",
			"temp_path", tempPath,
			"final_path", s.path,
			"error", err.Error(),
		)
		return fmt.Errorf("renaming state file: %w", err)
	}

	logger.Debug("state saved",
		"path", s.path,
		"history", len(saved.History),
	)
	return nil
}

// Load reads the state file. It returns nil, nil when no file exists.
func (s *StateStore) Load() (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("no state file found", "path", s.path)
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		logger.Warn("failed to unmarshal state",
			"path", s.path,
			"error", err.Error(),
		)
		return nil, fmt.Errorf("unmarshaling state: %w", err)
	}
	return &state, nil
}

// Delete removes the state file. A missing file is not an error.
func (s *StateStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting state file: %w", err)
	}
	return nil
}
