package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRecordEmitsEvent(t *testing.T) {
	var mu sync.Mutex
	var events []Event

	logger := New(10, WithHandler(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}))
	defer logger.Close()

	logger.Record("login", "success", "mina@example.com")

	// Give the async processor time to handle the event
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Action != "login" || events[0].Result != "success" {
		t.Errorf("event = %+v", events[0])
	}
	if events[0].Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestMultipleHandlers(t *testing.T) {
	var mu1, mu2 sync.Mutex
	var events1, events2 []Event

	handler1 := func(e Event) {
		mu1.Lock()
		defer mu1.Unlock()
		events1 = append(events1, e)
	}

	handler2 := func(e Event) {
		mu2.Lock()
		defer mu2.Unlock()
		events2 = append(events2, e)
	}

	logger := New(10, WithHandler(handler1), WithHandler(handler2))
	defer logger.Close()

	logger.Log(Event{Action: "refresh", Result: "success"})

	time.Sleep(100 * time.Millisecond)

	mu1.Lock()
	if len(events1) != 1 {
		t.Fatalf("handler1: expected 1 event, got %d", len(events1))
	}
	mu1.Unlock()

	mu2.Lock()
	if len(events2) != 1 {
		t.Fatalf("handler2: expected 1 event, got %d", len(events2))
	}
	mu2.Unlock()
}

func TestWriterHandlerEmitsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := New(10, WithWriterHandler(&buf))

	logger.Record("logout", "success", "")
	logger.Record("refresh", "failed", "refresh token expired")

	// Close waits for the processor, so the buffer is safe to read after.
	_ = logger.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d: %q", len(lines), buf.String())
	}

	var e Event
	if err := json.Unmarshal([]byte(lines[1]), &e); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if e.Action != "refresh" || e.Result != "failed" || e.Details != "refresh token expired" {
		t.Errorf("event = %+v", e)
	}
}

func TestCloseFlushesQueue(t *testing.T) {
	var mu sync.Mutex
	var count int

	logger := New(50, WithHandler(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		count++
	}))

	for i := 0; i < 20; i++ {
		logger.Record("login", "success", "")
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	mu.Lock()
	got := count
	mu.Unlock()
	if got != 20 {
		t.Errorf("processed %d events after Close, want 20", got)
	}
}

func TestCloseIdempotent(t *testing.T) {
	logger := New(10)
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	// Events after Close are dropped without blocking.
	logger.Record("login", "success", "")
}
