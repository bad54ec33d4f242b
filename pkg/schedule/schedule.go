// Package schedule provides cancellable delayed tasks. Components that
// dismiss or fire something later (toasts, the upload success signal) own
// the Task they scheduled and cancel it when they are closed.
package schedule

import (
	"sort"
	"sync"
	"time"
)

type Task interface {
	// Cancel prevents the task from running. It reports whether the task
	// was still pending.
	Cancel() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

// Real schedules on the wall clock.
type Real struct{}

var _ Scheduler = Real{}

func (Real) AfterFunc(d time.Duration, f func()) Task {
	return realTask{t: time.AfterFunc(d, f)}
}

type realTask struct {
	t *time.Timer
}

func (r realTask) Cancel() bool {
	return r.t.Stop()
}

// Manual is a Scheduler driven by Advance, for tests.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

var _ Scheduler = (*Manual)(nil)

func NewManual() *Manual {
	return &Manual{}
}

type manualTask struct {
	m       *Manual
	at      time.Duration
	seq     int
	f       func()
	pending bool
}

func (t *manualTask) Cancel() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	was := t.pending
	t.pending = false
	return was
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, at: m.now + d, seq: m.seq, f: f, pending: true}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward by d and runs every task that became due,
// in due order. Tasks run without the scheduler lock held, so they may
// schedule or cancel other tasks.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		next.pending = false
		m.now = next.at
		m.mu.Unlock()

		next.f()
	}
}

func (m *Manual) nextDueLocked(target time.Duration) *manualTask {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if t.pending {
			live = append(live, t)
		}
	}
	m.tasks = live
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].at == m.tasks[j].at {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].at < m.tasks[j].at
	})
	if len(m.tasks) == 0 || m.tasks[0].at > target {
		return nil
	}
	return m.tasks[0]
}

// Pending is the number of tasks that have neither run nor been cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if t.pending {
			n++
		}
	}
	return n
}
