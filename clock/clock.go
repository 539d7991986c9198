// Package clock provides the scheduling abstraction used by the operation engine.
//
// A Scheduler runs a callback repeatedly at a fixed interval until the returned
// Task is stopped. Two implementations are provided:
//   - Real: backed by time.Ticker, one goroutine per task
//   - Manual: virtual time for tests, callbacks run synchronously in Advance
//
// Example:
//
//	task := clock.Real{}.Every(100*time.Millisecond, func() {
//	    fmt.Println("tick")
//	})
//	defer task.Stop()
package clock

import (
	"sync"
	"time"
)

// Scheduler runs callbacks at a fixed interval.
type Scheduler interface {
	// Every calls fn every interval until the returned Task is stopped.
	// The first call happens one interval after Every returns.
	Every(interval time.Duration, fn func()) Task
}

// Task is a scheduled repeating callback.
type Task interface {
	// Stop cancels the task. It is safe to call more than once and from within
	// the task's own callback. A callback already in flight is not interrupted.
	Stop()
}

// Real is a Scheduler backed by the system clock.
type Real struct{}

// Every implements Scheduler.
func (Real) Every(interval time.Duration, fn func()) Task {
	t := &realTask{
		ticker: time.NewTicker(interval),
		stop:   make(chan struct{}),
	}
	go t.loop(fn)
	return t
}

type realTask struct {
	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

func (t *realTask) loop(fn func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-t.ticker.C:
			// Both channels may be ready; stop wins.
			select {
			case <-t.stop:
				return
			default:
			}
			fn()
		}
	}
}

func (t *realTask) Stop() {
	t.once.Do(func() { close(t.stop) })
}
