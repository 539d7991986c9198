package logging

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds how many entries are kept per run.
const DefaultMaxEntries = 500

// LogEntry represents a single log record with structured data.
type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// LogCollector stores captured log entries per run.
// Each run keeps at most maxEntries entries; the oldest are dropped first.
type LogCollector struct {
	mu         sync.RWMutex
	maxEntries int
	logs       map[string][]LogEntry // runID -> entries, oldest first
	dropped    map[string]int
}

// CollectorOption configures a LogCollector.
type CollectorOption func(*LogCollector)

// WithMaxEntries sets the per-run entry bound. Values below 1 are ignored.
func WithMaxEntries(n int) CollectorOption {
	return func(c *LogCollector) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// NewLogCollector creates a new LogCollector.
func NewLogCollector(opts ...CollectorOption) *LogCollector {
	c := &LogCollector{
		maxEntries: DefaultMaxEntries,
		logs:       make(map[string][]LogEntry),
		dropped:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddLog adds a log entry for the specified run.
func (c *LogCollector) AddLog(runID string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logs := append(c.logs[runID], entry)
	if over := len(logs) - c.maxEntries; over > 0 {
		logs = append(logs[:0:0], logs[over:]...)
		c.dropped[runID] += over
	}
	c.logs[runID] = logs
}

// GetLogs returns a copy of the entries for runID, oldest first.
func (c *LogCollector) GetLogs(runID string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, exists := c.logs[runID]
	if !exists {
		return nil
	}
	result := make([]LogEntry, len(logs))
	copy(result, logs)
	return result
}

// Dropped returns how many entries were discarded for runID.
func (c *LogCollector) Dropped(runID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dropped[runID]
}

// Forget removes the entries of runID.
func (c *LogCollector) Forget(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.logs, runID)
	delete(c.dropped, runID)
}
