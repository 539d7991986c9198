// Package handlers provides HTTP handlers for the neongrid server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"time"

	"github.com/nomis52/neongrid/config"
	"github.com/nomis52/neongrid/engine"
	"github.com/nomis52/neongrid/logging"
	"github.com/nomis52/neongrid/server/cron"
	"github.com/nomis52/neongrid/server/runner"
	"github.com/nomis52/neongrid/server/types"
)

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// Reloader can reload its configuration.
type Reloader interface {
	Reload() error
}

// Operator starts and stops operations.
type Operator interface {
	Start(runner.Request) (engine.RunSnapshot, error)
	Stop() bool
}

// StatusProvider provides everything the status endpoint reports.
type StatusProvider interface {
	Status() runner.Status
	NextRun() *time.Time
	Properties() types.ServerProperties
}

// KindsProvider lists the operation kinds with their effective config.
type KindsProvider interface {
	Kinds() []runner.KindInfo
}

// HistoryProvider provides access to run history.
type HistoryProvider interface {
	History() []runner.RunRecord
	Logs(id string) ([]logging.LogEntry, bool)
}

// ActivityProvider provides access to the activity feed.
type ActivityProvider interface {
	Activity() []runner.ActivityEntry
}

// ScheduleProvider lists the configured schedules.
type ScheduleProvider interface {
	Schedules() []cron.ScheduleStatus
}
