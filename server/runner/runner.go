// Package runner owns the operation engine for the neongrid server.
//
// The runner handles:
//   - Building jobs from the current configuration
//   - Surfacing start errors through the Notifier
//   - Keeping a bounded history of finished runs with their captured logs
//   - Maintaining the activity feed and cumulative per-kind stats
//
// Each start reads the configuration again, so a reload takes effect on the
// next run.
//
// # Example
//
//	r := runner.New(logger, configProvider, runner.WithSink(hub), runner.WithNotifier(hub))
//
//	snap, err := r.Start(runner.Request{Kind: engine.KindFollow, Items: users})
//	if errors.Is(err, engine.ErrAlreadyRunning) {
//	    // already shown to the user through the notifier
//	}
//
//	r.Stop()
//	history := r.History() // Most recent first
package runner

import (
	"log/slog"
	"time"

	"github.com/nomis52/neongrid/config"
	"github.com/nomis52/neongrid/engine"
	"github.com/nomis52/neongrid/logging"
	"github.com/nomis52/neongrid/metrics"
)

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// Runner starts and stops operations and records what they did.
type Runner struct {
	logger         *slog.Logger
	configProvider ConfigProvider
	store          StateStore
	logs           *logging.LogCollector
	activity       *ActivityLog
	stats          *stats
	notifiers      engine.Notifiers
	sinks          []engine.Sink
	metrics        []*metrics.OperationMetrics
	engineOpts     []engine.Option
	now            func() time.Time

	engine *engine.Engine
}

// Option configures a Runner.
type Option func(*Runner)

// WithStateStore sets the history store. Defaults to a MemoryStore sized from config.
func WithStateStore(store StateStore) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithSink adds a sink that receives every engine event after the runner has
// recorded it.
func WithSink(s engine.Sink) Option {
	return func(r *Runner) {
		r.sinks = append(r.sinks, s)
	}
}

// WithNotifier adds a destination for user-facing notifications.
func WithNotifier(n engine.Notifier) Option {
	return func(r *Runner) {
		r.notifiers = append(r.notifiers, n)
	}
}

// WithMetrics adds a set of operation metrics. Each set records engine
// events as well as start attempts and rejections.
func WithMetrics(m *metrics.OperationMetrics) Option {
	return func(r *Runner) {
		r.metrics = append(r.metrics, m)
	}
}

// WithEngineOptions passes options to the underlying engine, e.g. a scheduler or seed.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(r *Runner) {
		r.engineOpts = append(r.engineOpts, opts...)
	}
}

// WithNow sets the clock used for activity and notification timestamps.
func WithNow(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a new Runner.
func New(logger *slog.Logger, provider ConfigProvider, opts ...Option) *Runner {
	cfg := provider.Config()

	r := &Runner{
		logger:         logger,
		configProvider: provider,
		stats:          newStats(),
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.store == nil {
		r.store = NewMemoryStore(cfg.History.MaxRuns)
	}
	r.logs = logging.NewLogCollector(logging.WithMaxEntries(cfg.History.MaxLogEntries))
	r.activity = NewActivityLog(cfg.Activity.MaxEntries)

	sinks := engine.MultiSink{recorder{r}}
	for _, m := range r.metrics {
		sinks = append(sinks, m)
	}
	sinks = append(sinks, r.sinks...)

	engineOpts := []engine.Option{
		engine.WithSink(sinks),
		engine.WithLoggerFactory(logging.RunLoggerFactory(logger, r.logs)),
		engine.WithNow(r.now),
	}
	r.engine = engine.New(logger, append(engineOpts, r.engineOpts...)...)

	return r
}

// Start begins an operation in the background.
//
// Errors are returned unchanged from the engine (engine.ErrAlreadyRunning,
// engine.ErrEmptyInput, ...) after being shown through the notifier.
func (r *Runner) Start(req Request) (engine.RunSnapshot, error) {
	cfg := r.configProvider.Config()

	job := engine.Job{
		Kind:      req.Kind,
		Input:     req.Items,
		Config:    cfg.JobConfig(req.Kind),
		Templates: req.Templates,
	}
	if req.MaxItems != nil {
		job.Config.MaxItems = *req.MaxItems
	}
	if len(job.Templates) == 0 && req.Kind == engine.KindComment {
		job.Templates = cfg.Templates(req.Kind)
	}

	run, err := r.engine.Start(job)
	if err != nil {
		level, msg := startFailure(req.Kind, err)
		r.logger.Warn("operation not started", "kind", req.Kind.String(), "error", err)
		r.notify(level, msg)
		for _, m := range r.metrics {
			m.Rejected(err)
		}
		return engine.RunSnapshot{}, err
	}

	snap := run.Snapshot()
	for _, m := range r.metrics {
		m.Started(snap.Kind)
	}
	msg := startedMessage(snap)
	r.addActivity(engine.LevelInfo, msg, snap.ID)
	r.notify(engine.LevelInfo, msg)

	return snap, nil
}

// Stop cancels the active operation. Returns false if nothing was running.
func (r *Runner) Stop() bool {
	if !r.engine.Cancel() {
		return false
	}
	r.logger.Info("stop requested")
	r.notify(engine.LevelWarning, "All operations stopped")
	return true
}

// Wait blocks until the active run, if any, has finished.
func (r *Runner) Wait() {
	if run := r.engine.Active(); run != nil {
		<-run.Done()
	}
}

// IsRunning returns true if an operation is in progress.
func (r *Runner) IsRunning() bool {
	return r.engine.IsRunning()
}

// Status returns the active run and cumulative stats.
func (r *Runner) Status() Status {
	status := Status{Stats: r.stats.snapshot()}

	if run := r.engine.Active(); run != nil {
		snap := run.Snapshot()
		status.Active = &snap
		status.Running = snap.State == engine.RunStateRunning
	}
	if history := r.store.History(); len(history) > 0 {
		status.Last = &history[0]
	}
	return status
}

// History returns the finished runs, most recent first.
func (r *Runner) History() []RunRecord {
	return r.store.History()
}

// Logs returns the captured log entries of a run. The active run's logs are
// returned live.
func (r *Runner) Logs(id string) ([]logging.LogEntry, bool) {
	if rec, ok := r.store.Get(id); ok {
		return rec.Logs, true
	}
	if logs := r.logs.GetLogs(id); logs != nil {
		return logs, true
	}
	if run := r.engine.Active(); run != nil && run.ID() == id {
		return []logging.LogEntry{}, true
	}
	return nil, false
}

// Activity returns the activity feed, newest first.
func (r *Runner) Activity() []ActivityEntry {
	return r.activity.Entries()
}

// Stats returns cumulative per-kind counters.
func (r *Runner) Stats() map[string]KindStats {
	return r.stats.snapshot()
}

// Kinds returns every operation kind with its effective configuration.
func (r *Runner) Kinds() []KindInfo {
	cfg := r.configProvider.Config()
	kinds := engine.Kinds()

	infos := make([]KindInfo, 0, len(kinds))
	for _, kind := range kinds {
		infos = append(infos, KindInfo{
			Kind:      kind,
			Config:    cfg.JobConfig(kind),
			Templates: cfg.Templates(kind),
		})
	}
	return infos
}

func (r *Runner) notify(level engine.Level, msg string) {
	r.notifiers.Notify(engine.Notification{
		Level:   level,
		Message: msg,
		Time:    r.now(),
	})
}

func (r *Runner) addActivity(level engine.Level, msg, runID string) {
	r.activity.Add(ActivityEntry{
		Time:    r.now(),
		Level:   level,
		Message: msg,
		RunID:   runID,
	})
}

// recorder is the runner's own sink. It runs before any sink added with WithSink.
type recorder struct {
	r *Runner
}

func (rec recorder) ItemResult(res engine.ItemResult) {
	rec.r.stats.item(res)

	level := engine.LevelSuccess
	if res.Outcome == engine.OutcomeFailure {
		level = engine.LevelError
	}
	rec.r.addActivity(level, res.Label, res.RunID)
}

func (rec recorder) Progress(engine.Progress) {}

func (rec recorder) Summary(s engine.Summary) {
	r := rec.r
	r.stats.run(s)

	desc := engine.Describe(s)
	level := engine.LevelSuccess
	if s.Cancelled {
		level = engine.LevelWarning
	}

	record := RunRecord{
		Summary:     s,
		Description: desc,
		Logs:        r.logs.GetLogs(s.RunID),
	}
	if err := r.store.Save(record); err != nil {
		r.logger.Error("failed to save run to store", "run_id", s.RunID, "error", err)
	}
	r.logs.Forget(s.RunID)

	r.addActivity(level, desc, s.RunID)
	r.notify(level, desc)
}
