package watch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Sriram-PR/specdoc/pkg/utils"
)

const stateFileName = "watch_state.json"

// TargetState is the last run of one watched target (a directory or a single source)
type TargetState struct {
	LastRunTime    time.Time `json:"last_run_time"`
	LastRunSuccess bool      `json:"last_run_success"`
	Sources        int       `json:"sources"`
	Changed        int       `json:"changed"`
	Unchanged      int       `json:"unchanged"`
	Failed         int       `json:"failed"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// WatchState is the persisted state of the watch scheduler
type WatchState struct {
	Targets   map[string]TargetState `json:"targets"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// StateManager loads and saves WatchState as JSON in the state directory
type StateManager struct {
	stateDir  string
	statePath string
	state     WatchState
	mu        sync.RWMutex
	now       func() time.Time
}

// NewStateManager creates a new state manager
func NewStateManager(stateDir string) *StateManager {
	return &StateManager{
		stateDir:  stateDir,
		statePath: filepath.Join(stateDir, stateFileName),
		state:     WatchState{Targets: make(map[string]TargetState)},
		now:       time.Now,
	}
}

// Load reads the state file. A missing file starts fresh.
func (m *StateManager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.state = WatchState{Targets: make(map[string]TargetState)}
			return nil
		}
		return fmt.Errorf("%w: read watch state: %w", utils.ErrFilesystem, err)
	}

	var loaded WatchState
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("%w: JSON watch state '%s': %w", utils.ErrParsing, m.statePath, err)
	}
	if loaded.Targets == nil {
		loaded.Targets = make(map[string]TargetState)
	}
	m.state = loaded
	return nil
}

// Save writes the state file, creating the state directory if needed
func (m *StateManager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.UpdatedAt = m.now()
	if err := os.MkdirAll(m.stateDir, 0755); err != nil {
		return fmt.Errorf("%w: create state directory: %w", utils.ErrFilesystem, err)
	}
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: JSON watch state: %w", utils.ErrParsing, err)
	}
	if err := os.WriteFile(m.statePath, data, 0644); err != nil {
		return fmt.Errorf("%w: write watch state: %w", utils.ErrFilesystem, err)
	}
	return nil
}

// TargetState returns the state for target
func (m *StateManager) TargetState(target string) (TargetState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.state.Targets[target]
	return state, ok
}

// UpdateTargetState records a finished run of target, stamping LastRunTime
func (m *StateManager) UpdateTargetState(target string, state TargetState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state.LastRunTime = m.now()
	m.state.Targets[target] = state
}

// ShouldRun reports whether interval has passed since target last ran
func (m *StateManager) ShouldRun(target string, interval time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.state.Targets[target]
	if !ok {
		return true
	}
	return m.now().Sub(state.LastRunTime) >= interval
}

// NextRunTime returns when target is next due
func (m *StateManager) NextRunTime(target string, interval time.Duration) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.state.Targets[target]
	if !ok {
		return m.now()
	}
	return state.LastRunTime.Add(interval)
}

// AllTargetStates returns a copy of every target's state
func (m *StateManager) AllTargetStates() map[string]TargetState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]TargetState, len(m.state.Targets))
	for k, v := range m.state.Targets {
		result[k] = v
	}
	return result
}
