// Package engine implements the simulated-operation engine behind the
// NeonGrid control panel.
//
// The engine runs at most one operation at a time. A run walks its input on
// a fixed-interval step loop; every tick draws a pseudo-random outcome for
// one item and reports it to a Sink, until the input is exhausted, the
// configured maximum is reached, or the run is cancelled. Termination emits
// a Summary exactly once and releases the engine for the next run.
//
// # Example
//
//	eng := engine.New(logger, engine.WithSink(sink))
//
//	run, err := eng.Start(engine.NewJob(engine.KindFollow, []string{"alice", "bob"}))
//	if errors.Is(err, engine.ErrAlreadyRunning) {
//	    notifier.Notify(engine.Notification{Level: engine.LevelWarning, Message: err.Error()})
//	    return
//	}
//
//	// Stop early; the loop notices on its next tick.
//	eng.Cancel()
//	<-run.Done()
package engine

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nomis52/neongrid/clock"
)

// Engine starts, steps and cancels operation runs.
type Engine struct {
	logger        *slog.Logger
	loggerFactory func(runID string) *slog.Logger
	scheduler     clock.Scheduler
	sink          Sink
	newRand       func() *rand.Rand
	now           func() time.Time
	registry      Registry
}

// Option configures an Engine.
type Option func(*Engine)

// WithScheduler sets the scheduler driving the step loop. Defaults to clock.Real.
func WithScheduler(s clock.Scheduler) Option {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithSink sets the presentation sink. Defaults to a sink that drops events.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithLoggerFactory sets the function that creates each run's logger.
func WithLoggerFactory(f func(runID string) *slog.Logger) Option {
	return func(e *Engine) {
		e.loggerFactory = f
	}
}

// WithSeed makes outcome draws reproducible. Each run gets its own source
// derived from seed and the run's sequence number.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		var seq atomic.Uint64
		e.newRand = func() *rand.Rand {
			return rand.New(rand.NewPCG(seed, seq.Add(1)))
		}
	}
}

// WithNow sets the wall clock used for run timestamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine.
func New(logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:    logger,
		scheduler: clock.Real{},
		sink:      SinkFuncs{},
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.loggerFactory == nil {
		e.loggerFactory = func(runID string) *slog.Logger {
			return e.logger.With("run_id", runID)
		}
	}

	return e
}

// Start begins a run of job in the background.
//
// Returns ErrAlreadyRunning if another run is active, ErrEmptyInput if the
// job has no input, ErrUnknownKind or ErrInvalidConfig for malformed jobs.
// On error no state changes.
func (e *Engine) Start(job Job) (*Run, error) {
	if e.registry.IsRunning() {
		return nil, ErrAlreadyRunning
	}
	if !job.Kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(job.Kind))
	}
	if len(job.Input) == 0 {
		return nil, ErrEmptyInput
	}
	if err := job.Config.Validate(); err != nil {
		return nil, err
	}

	run := &Run{
		id:        uuid.New().String(),
		kind:      job.Kind,
		input:     slices.Clone(job.Input),
		templates: slices.Clone(job.Templates),
		cfg:       job.Config,
		limit:     job.Config.Limit(len(job.Input)),
		startedAt: e.now(),
		rng:       e.newRand(),
		done:      make(chan struct{}),
	}

	if !e.registry.acquire(run) {
		return nil, ErrAlreadyRunning
	}

	logger := e.loggerFactory(run.id)
	logger.Info("operation started",
		"kind", run.kind.String(),
		"items", len(run.input),
		"limit", run.limit,
		"interval", run.cfg.StepInterval,
	)

	task := e.scheduler.Every(run.cfg.StepInterval, func() {
		e.step(run, logger)
	})
	run.attach(task)

	return run, nil
}

// Cancel cancels the active run, if any. Returns true if a run was active.
// The run stops on its next tick and reports the counts reached so far.
func (e *Engine) Cancel() bool {
	run := e.registry.Active()
	if run == nil {
		return false
	}
	run.Cancel()
	return true
}

// IsRunning reports whether a run is active.
func (e *Engine) IsRunning() bool {
	return e.registry.IsRunning()
}

// Active returns the active run, or nil.
func (e *Engine) Active() *Run {
	return e.registry.Active()
}

// step runs one tick of run's loop.
func (e *Engine) step(run *Run, logger *slog.Logger) {
	t, ok := run.advance(e.now())
	if !ok {
		return
	}

	if t.summary != nil {
		e.finish(run, t, logger)
		return
	}

	logger.Debug(t.item.Label,
		"item", t.item.Item,
		"index", t.item.Index,
		"outcome", t.item.Outcome.String(),
	)
	e.sink.ItemResult(*t.item)
	e.sink.Progress(t.progress)
}

// finish is the sole terminal transition of a run.
func (e *Engine) finish(run *Run, t tick, logger *slog.Logger) {
	if t.task != nil {
		t.task.Stop()
	}
	e.registry.release(run)

	s := *t.summary
	logger.Info(Describe(s),
		"kind", s.Kind.String(),
		"processed", s.Processed,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"cancelled", s.Cancelled,
		"duration", s.Duration(),
	)

	e.sink.Summary(s)
	close(run.done)
}
