package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	runStateFile = "last_run.json"
)

// RunState summarizes the last completed run.
type RunState struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Frames and Cycles count what the runner executed.
	Frames int64 `json:"frames"`
	Cycles int64 `json:"cycles"`

	// Inputs is the number of input lines fed, Skipped the malformed ones.
	Inputs  int `json:"inputs"`
	Skipped int `json:"skipped"`

	Concepts int `json:"concepts"`
	Outputs  int `json:"outputs"`

	// Journal is the journal database the run wrote to, if any.
	Journal string `json:"journal,omitempty"`
}

// LoadRunState loads the summary from a target .reckon/last_run.json.
// Returns nil, nil if no run has been recorded.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadRunState(overrideDir string) (*RunState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, runStateFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading run state: %w", err)
	}

	state := &RunState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing run state: %w", err)
	}

	return state, nil
}

// SaveRunState persists the summary to a target .reckon/last_run.json.
func (m *Manager) SaveRunState(state *RunState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil run state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, runStateFile), data, 0o600); err != nil {
		return fmt.Errorf("writing run state: %w", err)
	}

	return nil
}

// ClearRunState removes the summary. Returns nil if there is none.
func (m *Manager) ClearRunState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, runStateFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing run state: %w", err)
	}

	return nil
}
