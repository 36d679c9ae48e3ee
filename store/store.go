// Package store provides Store implementations for the persisted session
// record.
//
// Memory keeps the record in-process and is meant for tests and single-window
// apps. File shares the record between processes through a JSON file at a
// well-known path and watches it for changes made by other instances. A
// redis-backed variant lives in store/redistore.
package store

import (
	"fmt"
	"sync"

	authkit "github.com/voyagio/authkit-go"
)

// listeners is the subscriber set shared by the implementations in this
// package. Callbacks fire synchronously, in registration order.
type listeners struct {
	mu     sync.Mutex
	fns    map[int]func(*authkit.Session)
	nextID int
}

func (l *listeners) add(fn func(*authkit.Session)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(*authkit.Session))
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) notify(s *authkit.Session) {
	l.mu.Lock()
	fns := make([]func(*authkit.Session), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(s.Clone())
	}
}

// Memory is an in-process Store.
type Memory struct {
	mu        sync.RWMutex
	session   *authkit.Session
	listeners listeners
}

// compile-time check
var _ authkit.Store = (*Memory)(nil)

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{}
}

// Read returns the current session, or nil when none is stored.
func (m *Memory) Read() (*authkit.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Clone(), nil
}

// Write replaces the stored session and notifies subscribers.
func (m *Memory) Write(s *authkit.Session) error {
	if !s.Valid() {
		return fmt.Errorf("authkit/store: refusing to write partial session")
	}

	m.mu.Lock()
	m.session = s.Clone()
	m.mu.Unlock()

	m.listeners.notify(s)
	return nil
}

// Clear removes the stored session and notifies subscribers with nil.
// Clearing an empty store is a no-op.
func (m *Memory) Clear() error {
	m.mu.Lock()
	had := m.session != nil
	m.session = nil
	m.mu.Unlock()

	if had {
		m.listeners.notify(nil)
	}
	return nil
}

// Subscribe registers a change listener.
func (m *Memory) Subscribe(fn func(*authkit.Session)) func() {
	return m.listeners.add(fn)
}
