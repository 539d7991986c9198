// Package cron starts neongrid operations on a schedule.
//
// Each entry under schedules in the config names an operation kind, a
// five-field cron expression and an input file. When the expression fires the
// input file is read fresh and its lines become the operation's items, so the
// file can be edited between runs without a reload. A firing that finds
// another operation still running is skipped and logged; it is not queued.
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec wraps cron expression parse failures.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CronTrigger calls start each time its schedule comes due.
type CronTrigger struct {
	spec     string
	schedule cron.Schedule
	start    func() error
	logger   *slog.Logger
}

// NewCronTrigger parses spec (minute hour dom month dow) and returns a
// trigger that calls start when it fires.
func NewCronTrigger(spec string, start func() error, logger *slog.Logger) (*CronTrigger, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}
	return &CronTrigger{spec: spec, schedule: schedule, start: start, logger: logger}, nil
}

// Start runs the trigger in its own goroutine until ctx is done.
func (ct *CronTrigger) Start(ctx context.Context) {
	go ct.wait(ctx)
}

// NextRun is the next time the trigger fires.
func (ct *CronTrigger) NextRun() time.Time {
	return ct.schedule.Next(time.Now())
}

func (ct *CronTrigger) wait(ctx context.Context) {
	for {
		due := ct.NextRun()
		ct.logger.Debug("next scheduled operation", "schedule", ct.spec, "due", due)

		timer := time.NewTimer(time.Until(due))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			ct.fire()
		}
	}
}

// fire starts one operation. A refused start is logged and dropped.
func (ct *CronTrigger) fire() {
	ct.logger.Info("schedule due", "schedule", ct.spec)
	if err := ct.start(); err != nil {
		ct.logger.Warn("scheduled operation skipped", "schedule", ct.spec, "error", err)
	}
}
