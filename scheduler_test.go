package authkit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_DueIsExpiryMinusSkew(t *testing.T) {
	s := NewRefreshScheduler(WithSkew(300 * time.Second))
	expiry := time.Now().Add(3600 * time.Second)

	s.Arm(expiry, func(context.Context) error { return nil })
	defer s.Cancel()

	due, armed := s.Due()
	if !armed {
		t.Fatal("scheduler should be armed")
	}
	want := expiry.Add(-300 * time.Second)
	if diff := due.Sub(want); diff < -time.Second || diff > time.Second {
		t.Errorf("due = %v, want ~%v (diff %v)", due, want, diff)
	}
}

func TestScheduler_FiresOnDue(t *testing.T) {
	s := NewRefreshScheduler(WithSkew(0))

	fired := make(chan struct{})
	s.Arm(time.Now().Add(20*time.Millisecond), func(context.Context) error {
		close(fired)
		return nil
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestScheduler_ExpiredDeadlineFiresAsync(t *testing.T) {
	s := NewRefreshScheduler(WithSkew(300 * time.Second))

	// onDue blocks until Arm has returned. If Arm invoked it synchronously
	// this would deadlock; firing on the next tick is the contract.
	release := make(chan struct{})
	fired := make(chan struct{})
	s.Arm(time.Now().Add(-1*time.Hour), func(context.Context) error {
		<-release
		close(fired)
		return nil
	})

	close(release)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expired deadline never fired")
	}
}

func TestScheduler_ReArmCancelsPrevious(t *testing.T) {
	s := NewRefreshScheduler(WithSkew(0))

	var first, second atomic.Int32
	s.Arm(time.Now().Add(30*time.Millisecond), func(context.Context) error {
		first.Add(1)
		return nil
	})
	s.Arm(time.Now().Add(60*time.Millisecond), func(context.Context) error {
		second.Add(1)
		return nil
	})

	time.Sleep(200 * time.Millisecond)

	if got := first.Load(); got != 0 {
		t.Errorf("replaced timer fired %d times, want 0", got)
	}
	if got := second.Load(); got != 1 {
		t.Errorf("current timer fired %d times, want 1", got)
	}
}

func TestScheduler_CancelPreventsFire(t *testing.T) {
	s := NewRefreshScheduler(WithSkew(0))

	var fired atomic.Int32
	s.Arm(time.Now().Add(30*time.Millisecond), func(context.Context) error {
		fired.Add(1)
		return nil
	})
	s.Cancel()

	time.Sleep(150 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Errorf("cancelled timer fired %d times, want 0", got)
	}
	if _, armed := s.Due(); armed {
		t.Error("scheduler should report unarmed after Cancel")
	}
}

func TestScheduler_CancelIdempotent(t *testing.T) {
	s := NewRefreshScheduler()
	s.Cancel()
	s.Cancel() // no timer armed; must not panic
}

func TestScheduler_FiresAtMostOnce(t *testing.T) {
	s := NewRefreshScheduler(WithSkew(0))

	var fired atomic.Int32
	s.Arm(time.Now().Add(20*time.Millisecond), func(context.Context) error {
		fired.Add(1)
		return nil
	})

	time.Sleep(200 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("timer fired %d times, want exactly 1", got)
	}
}
