// Package store is a tiny observable state container.
//
// A Store holds one value of type S. Every mutation goes through Update,
// which receives the current snapshot and returns the next one; the store
// never hands out a pointer to its live state. Snapshots must be treated as
// immutable: callers that hold slices or maps inside S copy them before
// changing them (see slices.Clone).
//
// Subscribers are called after each change, in the order the changes were
// made. A subscriber must not call back into the same store synchronously;
// UI code should use Latest, which hands snapshots over a channel instead.
package store

import (
	"sync"
)

type Store[S any] struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	state    S
	subs     map[int]func(S)
	nextID   int
	closed   bool
}

func New[S any](initial S) *Store[S] {
	return &Store[S]{
		state: initial,
		subs:  map[int]func(S){},
	}
}

// Get returns the current snapshot.
func (s *Store[S]) Get() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn atomically. fn returns the next state and whether it
// differs from the current one; subscribers are only notified on change.
// Updates on a closed store are dropped and report false.
func (s *Store[S]) Update(fn func(S) (S, bool)) (S, bool) {
	s.mu.Lock()
	if s.closed {
		st := s.state
		s.mu.Unlock()
		return st, false
	}
	next, changed := fn(s.state)
	if !changed {
		st := s.state
		s.mu.Unlock()
		return st, false
	}
	s.state = next
	subs := make([]func(S), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if sub, ok := s.subs[id]; ok {
			subs = append(subs, sub)
		}
	}
	// taking notifyMu before releasing mu keeps notifications in update order
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next, true
}

// Set replaces the state unconditionally.
func (s *Store[S]) Set(next S) {
	s.Update(func(S) (S, bool) { return next, true })
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store[S]) Subscribe(fn func(S)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	if !s.closed {
		s.subs[id] = fn
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close drops all subscribers; later updates are ignored. It models the
// owning component being unmounted.
func (s *Store[S]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = map[int]func(S){}
}

func (s *Store[S]) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Latest subscribes to s and delivers snapshots on a channel that only ever
// holds the most recent one: a slow reader skips intermediate states but
// always ends up seeing the last. The channel is closed by the returned
// cancel function.
func Latest[S any](s *Store[S]) (<-chan S, func()) {
	ch := make(chan S, 1)
	var mu sync.Mutex
	done := false

	unsubscribe := s.Subscribe(func(st S) {
		mu.Lock()
		defer mu.Unlock()
		if done {
			return
		}
		select {
		case <-ch:
		default:
		}
		ch <- st
	})

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			done = true
			close(ch)
			mu.Unlock()
		})
	}
}
