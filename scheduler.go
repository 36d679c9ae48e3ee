package authkit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultRefreshSkew is how long before token expiry a proactive refresh is
// triggered.
const DefaultRefreshSkew = 5 * time.Minute

// RefreshScheduler arranges exactly one pending refresh attempt ahead of
// token expiry. Arm replaces any previously armed timer; a stale timer that
// fires after Cancel or a re-Arm is a no-op. It never retries: a failed onDue
// is the owner's problem (the Manager logs out).
type RefreshScheduler struct {
	skew   time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	due   time.Time
	armed bool
}

// SchedulerOption configures the RefreshScheduler.
type SchedulerOption func(*RefreshScheduler)

// WithSkew sets the refresh skew window. Default: 5 minutes.
func WithSkew(d time.Duration) SchedulerOption {
	return func(s *RefreshScheduler) { s.skew = d }
}

// WithSchedulerLogger sets a structured logger for timer events.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *RefreshScheduler) { s.logger = l }
}

// NewRefreshScheduler creates an unarmed scheduler.
func NewRefreshScheduler(opts ...SchedulerOption) *RefreshScheduler {
	s := &RefreshScheduler{
		skew: DefaultRefreshSkew,
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Arm schedules onDue to run at expiresAt minus the skew window, cancelling
// any previously armed timer. A deadline already inside the skew window fires
// on the next tick, never synchronously inside Arm, so the caller finishes
// its own state mutation first.
func (s *RefreshScheduler) Arm(expiresAt time.Time, onDue func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.gen++
	gen := s.gen

	delay := time.Until(expiresAt) - s.skew
	if delay < 0 {
		delay = 0
	}
	s.due = s.now().Add(delay)
	s.armed = true
	s.timer = time.AfterFunc(delay, func() { s.fire(gen, onDue) })

	if s.logger != nil {
		s.logger.Debug("refresh armed", "due", s.due, "delay", delay)
	}
}

// Cancel stops any pending timer. Mandatory on logout and teardown: a timer
// that outlives its session must never act on stale closure state.
func (s *RefreshScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.gen++
}

func (s *RefreshScheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armed = false
}

// Due returns the deadline of the pending timer, if one is armed.
func (s *RefreshScheduler) Due() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.due, s.armed
}

func (s *RefreshScheduler) fire(gen uint64, onDue func(context.Context) error) {
	s.mu.Lock()
	if gen != s.gen || !s.armed {
		s.mu.Unlock()
		return // cancelled or re-armed since this timer was set
	}
	s.armed = false
	s.mu.Unlock()

	if err := onDue(context.Background()); err != nil && s.logger != nil {
		s.logger.Warn("scheduled refresh failed", "error", err)
	}
}
