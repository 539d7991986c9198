package runner

import "sync"

const defaultMaxActivity = 50

// ActivityLog is a bounded feed of activity entries.
type ActivityLog struct {
	mu      sync.Mutex
	max     int
	entries []ActivityEntry // oldest first
}

// NewActivityLog creates a feed holding at most max entries.
// A non-positive max uses the default of 50.
func NewActivityLog(max int) *ActivityLog {
	if max <= 0 {
		max = defaultMaxActivity
	}
	return &ActivityLog{max: max}
}

// Add appends an entry, dropping the oldest when full.
func (a *ActivityLog) Add(e ActivityEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, e)
	if over := len(a.entries) - a.max; over > 0 {
		a.entries = append(a.entries[:0:0], a.entries[over:]...)
	}
}

// Entries returns the feed, newest first.
func (a *ActivityLog) Entries() []ActivityEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := make([]ActivityEntry, len(a.entries))
	for i, e := range a.entries {
		result[len(a.entries)-1-i] = e
	}
	return result
}
