package engine

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nomis52/neongrid/clock"
)

// RunState is the lifecycle state of a run.
type RunState int

const (
	// RunStateRunning indicates the step loop is still ticking.
	RunStateRunning RunState = iota
	// RunStateCompleted indicates the run processed its whole limit.
	RunStateCompleted
	// RunStateCancelled indicates the run was stopped before its limit.
	RunStateCancelled
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	switch s {
	case RunStateRunning:
		return "running"
	case RunStateCompleted:
		return "completed"
	case RunStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (s RunState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *RunState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "running":
		*s = RunStateRunning
	case "completed":
		*s = RunStateCompleted
	case "cancelled":
		*s = RunStateCancelled
	default:
		return fmt.Errorf("unknown run state %q", str)
	}
	return nil
}

// Job describes an operation to start.
type Job struct {
	Kind   Kind
	Input  []string
	Config Config
	// Templates are comment texts for KindComment; one is picked per item.
	Templates []string
}

// NewJob creates a job for kind using the kind's default config.
func NewJob(kind Kind, input []string) Job {
	return Job{
		Kind:   kind,
		Input:  input,
		Config: DefaultConfig(kind),
	}
}

// Run is a single execution of an operation over its input.
// The input is copied at start and never changes.
type Run struct {
	id        string
	kind      Kind
	input     []string
	templates []string
	cfg       Config
	limit     int
	startedAt time.Time
	rng       *rand.Rand

	cancelled atomic.Bool
	done      chan struct{}

	mu        sync.Mutex
	cursor    int
	succeeded int
	failed    int
	state     RunState
	endedAt   time.Time
	task      clock.Task
}

// RunSnapshot is a consistent copy of a run's state.
type RunSnapshot struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	State     RunState   `json:"state"`
	Processed int        `json:"processed"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Limit     int        `json:"limit"`
	Config    Config     `json:"config"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// ID returns the run's unique identifier.
func (r *Run) ID() string { return r.id }

// Kind returns the run's operation kind.
func (r *Run) Kind() Kind { return r.kind }

// Limit returns the number of items the run will process if not cancelled.
func (r *Run) Limit() int { return r.limit }

// Cancel asks the run to stop. The step loop observes it on its next tick.
// Calling Cancel more than once has no further effect.
func (r *Run) Cancel() {
	r.cancelled.Store(true)
}

// Done is closed after the run's summary has been emitted.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Snapshot returns a copy of the run's current state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := RunSnapshot{
		ID:        r.id,
		Kind:      r.kind,
		State:     r.state,
		Processed: r.cursor,
		Succeeded: r.succeeded,
		Failed:    r.failed,
		Limit:     r.limit,
		Config:    r.cfg,
		StartedAt: r.startedAt,
	}
	if r.state != RunStateRunning {
		ended := r.endedAt
		snap.EndedAt = &ended
	}
	return snap
}

// attach records the scheduled task. If the run already finished, which can
// happen when the first tick beats attach, the task is stopped immediately.
func (r *Run) attach(task clock.Task) {
	r.mu.Lock()
	r.task = task
	finished := r.state != RunStateRunning
	r.mu.Unlock()

	if finished {
		task.Stop()
	}
}

// tick is the outcome of one step.
type tick struct {
	item     *ItemResult
	progress Progress
	summary  *Summary
	task     clock.Task
}

// advance performs one step under the run lock. It returns a zero tick with
// no item and no summary if the run already finished.
func (r *Run) advance(now time.Time) (tick, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RunStateRunning {
		return tick{}, false
	}

	if r.cancelled.Load() || r.cursor >= r.limit {
		r.state = RunStateCompleted
		if r.cursor < r.limit {
			r.state = RunStateCancelled
		}
		r.endedAt = now
		return tick{
			summary: &Summary{
				RunID:     r.id,
				Kind:      r.kind,
				Processed: r.cursor,
				Succeeded: r.succeeded,
				Failed:    r.failed,
				Limit:     r.limit,
				Cancelled: r.state == RunStateCancelled,
				StartedAt: r.startedAt,
				EndedAt:   now,
			},
			task: r.task,
		}, true
	}

	item := r.input[r.cursor]
	outcome := OutcomeFailure
	if r.rng.Float64() < r.cfg.SuccessProbability {
		outcome = OutcomeSuccess
	}

	var template string
	if r.kind == KindComment && len(r.templates) > 0 {
		template = r.templates[r.rng.IntN(len(r.templates))]
	}

	if outcome == OutcomeSuccess {
		r.succeeded++
	} else {
		r.failed++
	}
	index := r.cursor
	r.cursor++

	return tick{
		item: &ItemResult{
			RunID:   r.id,
			Kind:    r.kind,
			Index:   index,
			Item:    item,
			Label:   Label(r.kind, item, outcome, template),
			Outcome: outcome,
			Delay:   r.cfg.ItemDelay,
		},
		progress: Progress{
			RunID:     r.id,
			Kind:      r.kind,
			Processed: r.cursor,
			Limit:     r.limit,
		},
	}, true
}
