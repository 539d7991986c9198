package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomis52/neongrid/config"
	"github.com/nomis52/neongrid/engine"
	"github.com/nomis52/neongrid/input"
	"github.com/nomis52/neongrid/server/runner"
)

// Starter starts operations. Implemented by *runner.Runner.
type Starter interface {
	Start(runner.Request) (engine.RunSnapshot, error)
}

// ScheduleStatus describes one registered schedule.
type ScheduleStatus struct {
	Kind      engine.Kind `json:"kind"`
	Schedule  string      `json:"schedule"`
	InputFile string      `json:"input_file"`
	NextRun   time.Time   `json:"next_run"`
}

type entry struct {
	kind      engine.Kind
	inputFile string
	trigger   *CronTrigger
}

// CronTriggerManager manages one CronTrigger per configured schedule.
type CronTriggerManager struct {
	entries []entry
	logger  *slog.Logger
}

// NewCronTriggerManager creates a trigger for every schedule. When a trigger
// fires, the input file is read again and the operation is started through
// starter.
func NewCronTriggerManager(schedules []config.ScheduleConfig, starter Starter, logger *slog.Logger) (*CronTriggerManager, error) {
	entries := make([]entry, 0, len(schedules))

	for i, s := range schedules {
		kind, err := engine.ParseKind(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("schedule %d: %w", i, err)
		}

		trigger, err := NewCronTrigger(s.Schedule, startFromFile(starter, kind, s.InputFile), logger.With("kind", kind.String()))
		if err != nil {
			return nil, fmt.Errorf("creating trigger for %s %q: %w", kind, s.Schedule, err)
		}
		entries = append(entries, entry{kind: kind, inputFile: s.InputFile, trigger: trigger})
	}

	for _, e := range entries {
		logger.Info("schedule registered",
			"kind", e.kind.String(),
			"schedule", e.trigger.spec,
			"input_file", e.inputFile,
			"next_run", e.trigger.NextRun(),
		)
	}

	return &CronTriggerManager{
		entries: entries,
		logger:  logger,
	}, nil
}

// startFromFile returns the function a trigger calls when it fires.
func startFromFile(starter Starter, kind engine.Kind, path string) func() error {
	return func() error {
		items, err := input.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = starter.Start(runner.Request{Kind: kind, Items: items})
		return err
	}
}

// Start launches all triggers. Each trigger runs in its own goroutine.
// Returns immediately. All goroutines exit when ctx is cancelled.
func (m *CronTriggerManager) Start(ctx context.Context) {
	for _, e := range m.entries {
		e.trigger.Start(ctx)
	}
}

// Run starts all triggers and blocks until ctx is cancelled.
func (m *CronTriggerManager) Run(ctx context.Context) error {
	m.Start(ctx)
	<-ctx.Done()
	return nil
}

// NextRun returns the earliest scheduled run time across all triggers.
// Returns zero time if there are no triggers.
func (m *CronTriggerManager) NextRun() time.Time {
	var earliest time.Time
	for _, e := range m.entries {
		next := e.trigger.NextRun()
		if earliest.IsZero() || next.Before(earliest) {
			earliest = next
		}
	}
	return earliest
}

// Schedules returns every registered schedule with its next run time.
func (m *CronTriggerManager) Schedules() []ScheduleStatus {
	result := make([]ScheduleStatus, 0, len(m.entries))
	for _, e := range m.entries {
		result = append(result, ScheduleStatus{
			Kind:      e.kind,
			Schedule:  e.trigger.spec,
			InputFile: e.inputFile,
			NextRun:   e.trigger.NextRun(),
		})
	}
	return result
}
