package engine

import "sync"

// Registry is the single slot tracking the active run.
//
// A run may only be acquired while the slot is empty, and it is released
// exactly once by the run that holds it.
type Registry struct {
	mu     sync.Mutex
	active *Run
}

// IsRunning reports whether a run holds the slot.
func (r *Registry) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Active returns the run holding the slot, or nil.
func (r *Registry) Active() *Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// acquire places run in the slot. Returns false if the slot is taken.
func (r *Registry) acquire(run *Run) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return false
	}
	r.active = run
	return true
}

// release empties the slot if run holds it. Returns false otherwise.
func (r *Registry) release(run *Run) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != run {
		return false
	}
	r.active = nil
	return true
}
