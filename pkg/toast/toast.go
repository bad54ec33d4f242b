package toast

import (
	"sync"
	"time"

	"github.com/go-go-golems/kbassist/pkg/schedule"
	"github.com/go-go-golems/kbassist/pkg/store"
	"github.com/google/uuid"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

const DefaultDuration = 3 * time.Second

// Toast is an ephemeral banner. Duration zero means it stays until dismissed.
type Toast struct {
	ID       string
	Message  string
	Kind     Kind
	Duration time.Duration
}

// Manager owns at most one visible toast and its dismissal timer.
type Manager struct {
	store     *store.Store[*Toast]
	scheduler schedule.Scheduler
	duration  time.Duration
	onDismiss func(Toast)

	mu   sync.Mutex
	task schedule.Task
}

type Option func(*Manager)

func WithScheduler(s schedule.Scheduler) Option {
	return func(m *Manager) {
		m.scheduler = s
	}
}

// WithDefaultDuration changes the duration used by Show.
func WithDefaultDuration(d time.Duration) Option {
	return func(m *Manager) {
		m.duration = d
	}
}

// WithOnDismiss is called once for every toast that goes away, whether it
// timed out, was closed, or was replaced by a newer one.
func WithOnDismiss(f func(Toast)) Option {
	return func(m *Manager) {
		m.onDismiss = f
	}
}

func NewManager(options ...Option) *Manager {
	m := &Manager{
		store:     store.New[*Toast](nil),
		scheduler: schedule.Real{},
		duration:  DefaultDuration,
	}
	for _, o := range options {
		o(m)
	}
	return m
}

func (m *Manager) Store() *store.Store[*Toast] {
	return m.store
}

// Current returns the visible toast, or nil.
func (m *Manager) Current() *Toast {
	return m.store.Get()
}

func (m *Manager) Show(message string, kind Kind) Toast {
	return m.ShowFor(message, kind, m.duration)
}

// ShowFor replaces any visible toast with a new one. A positive duration
// schedules its auto-dismissal.
func (m *Manager) ShowFor(message string, kind Kind, d time.Duration) Toast {
	if d < 0 {
		d = 0
	}
	t := Toast{ID: uuid.NewString(), Message: message, Kind: kind, Duration: d}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()

	var replaced *Toast
	_, changed := m.store.Update(func(cur *Toast) (*Toast, bool) {
		replaced = cur
		return &t, true
	})
	if !changed {
		return t
	}
	if replaced != nil && m.onDismiss != nil {
		m.onDismiss(*replaced)
	}

	if d > 0 {
		id := t.ID
		m.task = m.scheduler.AfterFunc(d, func() {
			m.dismiss(id)
		})
	}
	return t
}

// Dismiss removes the visible toast and cancels its pending auto-dismissal.
func (m *Manager) Dismiss() {
	cur := m.store.Get()
	if cur == nil {
		return
	}
	m.dismiss(cur.ID)
}

// Close cancels any pending timer; the store stops accepting updates.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
	m.store.Close()
}

func (m *Manager) dismiss(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed *Toast
	m.store.Update(func(cur *Toast) (*Toast, bool) {
		if cur == nil || cur.ID != id {
			return cur, false
		}
		removed = cur
		return nil, true
	})
	if removed == nil {
		return
	}
	m.cancelLocked()
	if m.onDismiss != nil {
		m.onDismiss(*removed)
	}
}

func (m *Manager) cancelLocked() {
	if m.task != nil {
		m.task.Cancel()
		m.task = nil
	}
}
