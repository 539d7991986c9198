package runner

import (
	"slices"
	"sync"
)

const defaultMaxHistorySize = 100

// MemoryStore keeps run history in memory only (no persistence).
// The oldest runs are dropped once maxRuns is reached.
type MemoryStore struct {
	mu      sync.Mutex
	maxRuns int
	runs    []RunRecord // most recent first
}

// NewMemoryStore creates a new in-memory store holding at most maxRuns runs.
// A non-positive maxRuns uses the default of 100.
func NewMemoryStore(maxRuns int) *MemoryStore {
	if maxRuns <= 0 {
		maxRuns = defaultMaxHistorySize
	}
	return &MemoryStore{
		maxRuns: maxRuns,
		runs:    make([]RunRecord, 0),
	}
}

// History returns all runs without their logs, most recent first.
func (s *MemoryStore) History() []RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]RunRecord, len(s.runs))
	for i, run := range s.runs {
		run.Logs = nil
		result[i] = run
	}
	return result
}

// Get returns the run with the given ID, including its logs.
func (s *MemoryStore) Get(id string) (RunRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, run := range s.runs {
		if run.RunID == id {
			run.Logs = slices.Clone(run.Logs)
			return run, true
		}
	}
	return RunRecord{}, false
}

// Save stores a run in memory.
func (s *MemoryStore) Save(run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = slices.Insert(s.runs, 0, run)
	if len(s.runs) > s.maxRuns {
		clear(s.runs[s.maxRuns:])
		s.runs = s.runs[:s.maxRuns]
	}
	return nil
}
