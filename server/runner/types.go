package runner

import (
	"time"

	"github.com/nomis52/neongrid/engine"
	"github.com/nomis52/neongrid/logging"
)

// RunRecord is a finished run kept in history.
type RunRecord struct {
	engine.Summary
	// Description is the human-readable completion line.
	Description string `json:"description"`
	// Logs are the log entries captured while the run was active.
	Logs []logging.LogEntry `json:"-"`
}

// Status describes the runner's current state.
type Status struct {
	Running bool `json:"running"`
	// Active is the running operation. Nil when idle.
	Active *engine.RunSnapshot `json:"active,omitempty"`
	// Last is the most recent finished run. Nil if none has finished.
	Last  *RunRecord           `json:"last,omitempty"`
	Stats map[string]KindStats `json:"stats"`
}

// KindStats are cumulative counters for one operation kind.
type KindStats struct {
	Runs      int `json:"runs"`
	Cancelled int `json:"cancelled"`
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ActivityEntry is one line of the activity feed.
type ActivityEntry struct {
	Time    time.Time    `json:"time"`
	Level   engine.Level `json:"level"`
	Message string       `json:"message"`
	RunID   string       `json:"run_id,omitempty"`
}

// KindInfo describes an operation kind with its effective configuration.
type KindInfo struct {
	Kind      engine.Kind   `json:"kind"`
	Config    engine.Config `json:"config"`
	Templates []string      `json:"templates,omitempty"`
}

// Request asks the runner to start an operation.
type Request struct {
	Kind  engine.Kind
	Items []string
	// MaxItems overrides the configured cap when set. Zero removes the cap.
	MaxItems *int
	// Templates override the configured comment templates when non-empty.
	Templates []string
}
