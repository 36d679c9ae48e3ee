package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	authkit "github.com/voyagio/authkit-go"
)

// DefaultPollInterval is how often File checks the record for changes made by
// other processes.
const DefaultPollInterval = 1 * time.Second

// File is a Store backed by a JSON record on disk, shared between every
// process pointed at the same path. Writes are atomic (temp file + rename).
// Changes made by this instance fire subscribers synchronously; changes made
// by other instances are picked up by a polling watcher.
type File struct {
	path string
	poll time.Duration

	mu      sync.Mutex
	lastRaw []byte // file content after our last read/write; watcher baseline

	listeners listeners

	stop     chan struct{}
	stopOnce sync.Once
}

// compile-time check
var _ authkit.Store = (*File)(nil)

// FileOption configures the File store.
type FileOption func(*File)

// WithPollInterval sets the external-change poll interval.
func WithPollInterval(d time.Duration) FileOption {
	return func(f *File) { f.poll = d }
}

// NewFile creates a file-backed store and starts its change watcher. The
// parent directory is created if missing. Call Close to stop the watcher.
func NewFile(path string, opts ...FileOption) (*File, error) {
	f := &File{
		path: path,
		poll: DefaultPollInterval,
		stop: make(chan struct{}),
	}
	for _, o := range opts {
		o(f)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("authkit/store: create directory: %w", err)
	}

	// Baseline before the watcher starts, so a pre-existing record does not
	// fire as a change.
	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("authkit/store: read record: %w", err)
	}
	f.lastRaw = raw

	go f.watch()
	return f, nil
}

// Read returns the persisted session, or nil when none exists. A record that
// no longer unmarshals is treated as absent rather than failing every caller.
func (f *File) Read() (*authkit.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLocked()
}

func (f *File) readLocked() (*authkit.Session, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		f.lastRaw = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authkit/store: read record: %w", err)
	}
	f.lastRaw = raw

	return decodeRecord(raw), nil
}

// Write atomically replaces the record and notifies subscribers.
func (f *File) Write(s *authkit.Session) error {
	if !s.Valid() {
		return fmt.Errorf("authkit/store: refusing to write partial session")
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("authkit/store: encode record: %w", err)
	}

	f.mu.Lock()
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		f.mu.Unlock()
		return fmt.Errorf("authkit/store: write record: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		f.mu.Unlock()
		return fmt.Errorf("authkit/store: replace record: %w", err)
	}
	f.lastRaw = raw
	f.mu.Unlock()

	f.listeners.notify(s)
	return nil
}

// Clear removes the record and notifies subscribers with nil. Clearing a
// missing record is a no-op.
func (f *File) Clear() error {
	f.mu.Lock()
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		f.mu.Unlock()
		return fmt.Errorf("authkit/store: clear record: %w", err)
	}
	had := f.lastRaw != nil
	f.lastRaw = nil
	f.mu.Unlock()

	if had && err == nil {
		f.listeners.notify(nil)
	}
	return nil
}

// Subscribe registers a change listener.
func (f *File) Subscribe(fn func(*authkit.Session)) func() {
	return f.listeners.add(fn)
}

// Close stops the external-change watcher.
func (f *File) Close() error {
	f.stopOnce.Do(func() { close(f.stop) })
	return nil
}

// watch polls the record and fires subscribers when another process changed
// it. Content comparison rather than mtime: rename granularity on some
// filesystems is too coarse to rely on timestamps.
func (f *File) watch() {
	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.checkExternal()
		}
	}
}

func (f *File) checkExternal() {
	f.mu.Lock()
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		raw = nil
	} else if err != nil {
		f.mu.Unlock()
		return // transient read failure; retry next tick
	}

	if bytes.Equal(raw, f.lastRaw) {
		f.mu.Unlock()
		return
	}
	f.lastRaw = raw
	f.mu.Unlock()

	if raw == nil {
		f.listeners.notify(nil)
		return
	}
	f.listeners.notify(decodeRecord(raw))
}

func decodeRecord(raw []byte) *authkit.Session {
	var s authkit.Session
	if err := json.Unmarshal(raw, &s); err != nil || !s.Valid() {
		return nil
	}
	return &s
}
