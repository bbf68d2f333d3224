package mesh

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kwv/beaconmesh/logger"
)

// Status summarizes the tracker for health checks
type Status struct {
	Ready     bool      `json:"ready"`
	RunID     string    `json:"runId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
	Solves    int       `json:"solves"`
	LastError string    `json:"lastError,omitempty"`
}

// StateTracker holds the latest unified result for the HTTP endpoints.
// A Result is treated as immutable once stored.
type StateTracker struct {
	mu        sync.RWMutex
	result    *Result
	updatedAt time.Time
	solves    int
	lastErr   error
	cachePath string // path to the result cache file; empty disables persistence
}

// NewStateTracker creates an empty state tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{}
}

// NewStateTrackerWithCache creates a state tracker that persists each result
// to cachePath. An existing cache is loaded on creation.
func NewStateTrackerWithCache(cachePath string) *StateTracker {
	st := &StateTracker{cachePath: cachePath}
	if cachePath == "" {
		return st
	}
	r, err := LoadResult(cachePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("[STATE] ignoring result cache %s: %v", cachePath, err)
		}
		return st
	}
	st.result = r
	logger.Infof("[STATE] loaded cached result %s", r.RunID)
	return st
}

// SetResult stores a new result and clears the last error
func (st *StateTracker) SetResult(r *Result) {
	st.mu.Lock()
	st.result = r
	st.updatedAt = time.Now()
	st.solves++
	st.lastErr = nil
	cachePath := st.cachePath
	st.mu.Unlock()

	if cachePath != "" && r != nil {
		if err := SaveResult(r, cachePath); err != nil {
			logger.Warnf("[STATE] failed to save result cache: %v", err)
		}
	}
}

// SetError records a failed solve. The previous result stays available.
func (st *StateTracker) SetError(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.lastErr = err
}

// Result returns the latest result, or nil
func (st *StateTracker) Result() *Result {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.result
}

// HasResult returns true once a result is available
func (st *StateTracker) HasResult() bool {
	return st.Result() != nil
}

// Status returns a snapshot for health reporting
func (st *StateTracker) Status() Status {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s := Status{
		Ready:     st.result != nil,
		UpdatedAt: st.updatedAt,
		Solves:    st.solves,
	}
	if st.result != nil {
		s.RunID = st.result.RunID
	}
	if st.lastErr != nil {
		s.LastError = st.lastErr.Error()
	}
	return s
}

// SaveResult writes a result to disk as JSON
func SaveResult(r *Result, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result cache: %w", err)
	}
	return nil
}

// LoadResult reads a result from a JSON file on disk
func LoadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal result cache: %w", err)
	}
	return &r, nil
}
