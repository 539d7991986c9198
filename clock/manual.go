package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by virtual time. Callbacks only run inside
// Advance, on the caller's goroutine, in due-time order.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

// NewManual creates a Manual scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{}
}

// Every implements Scheduler.
func (m *Manual) Every(interval time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTask{
		owner:    m,
		seq:      m.seq,
		interval: interval,
		next:     m.now + interval,
		fn:       fn,
	}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves virtual time forward by d, running every callback that
// becomes due. A callback due exactly at the new time runs.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.nextDueLocked(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.next
		t.next += t.interval
		m.mu.Unlock()

		// Run outside the lock so the callback may stop tasks or schedule new ones.
		t.fn()
	}
}

// Tick advances virtual time by the interval of the earliest pending task,
// running exactly the callbacks due at that instant. Returns false if there
// are no pending tasks.
func (m *Manual) Tick() bool {
	m.mu.Lock()
	t := m.nextDueLocked(-1)
	if t == nil {
		m.mu.Unlock()
		return false
	}
	d := t.next - m.now
	m.mu.Unlock()

	m.Advance(d)
	return true
}

// Pending returns the number of tasks that have not been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Now returns the elapsed virtual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// nextDueLocked returns the earliest task due at or before limit.
// A negative limit means no limit.
func (m *Manual) nextDueLocked(limit time.Duration) *manualTask {
	if len(m.tasks) == 0 {
		return nil
	}
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].next == m.tasks[j].next {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].next < m.tasks[j].next
	})
	t := m.tasks[0]
	if limit >= 0 && t.next > limit {
		return nil
	}
	return t
}

func (m *Manual) remove(t *manualTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, other := range m.tasks {
		if other == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}

type manualTask struct {
	owner    *Manual
	seq      int
	interval time.Duration
	next     time.Duration
	fn       func()
	once     sync.Once
}

func (t *manualTask) Stop() {
	t.once.Do(func() { t.owner.remove(t) })
}
