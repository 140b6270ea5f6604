package modem

import (
	"context"
	"io"
	"sync"
	"time"
)

// TestTransport is a test helper that simulates a poll-based modem link.
// Every Write releases the next queued reply into the receive buffer, so
// a script of replies plays back in step with the commands that trigger
// them. Exported for use in tests of dependent packages.
type TestTransport struct {
	mu      sync.Mutex
	rx      []byte
	replies []string
	writes  [][]byte
	closed  bool
}

// NewTestTransport creates a new test transport for testing.
func NewTestTransport() *TestTransport {
	return &TestTransport{}
}

// Reply queues data released by the next unanswered Write. An empty reply
// leaves the write unanswered.
func (t *TestTransport) Reply(data ...string) *TestTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies = append(t.replies, data...)
	return t
}

// SendData makes data readable immediately.
// This simulates receiving data from the modem.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.rx = append(t.rx, data...)
	}
}

// Writes returns everything written so far, one entry per Write call.
func (t *TestTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.writes))
	for i, w := range t.writes {
		out[i] = string(w)
	}
	return out
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	t.writes = append(t.writes, append([]byte(nil), p...))
	if len(t.replies) > 0 {
		t.rx = append(t.rx, t.replies[0]...)
		t.replies = t.replies[1:]
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.EOF
	}
	n = copy(p, t.rx)
	t.rx = t.rx[n:]
	return n, nil
}

func (t *TestTransport) Buffered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rx)
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Dialer returns a Dialer handing out this transport.
func (t *TestTransport) Dialer() Dialer {
	return DialerFunc(func(ctx context.Context) (Transport, error) {
		return t, nil
	})
}

// TestClock is a Clock that only moves when slept on. Callbacks scheduled
// with At run once the clock reaches their offset from the start.
type TestClock struct {
	mu     sync.Mutex
	start  time.Time
	now    time.Time
	events []clockEvent
}

type clockEvent struct {
	at time.Duration
	fn func()
}

// NewTestClock creates a clock frozen at an arbitrary instant.
func NewTestClock() *TestClock {
	start := time.Date(2023, 8, 5, 10, 51, 0, 0, time.UTC)
	return &TestClock{start: start, now: start}
}

func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *TestClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	elapsed := c.now.Sub(c.start)
	var due []func()
	kept := c.events[:0]
	for _, e := range c.events {
		if e.at <= elapsed {
			due = append(due, e.fn)
		} else {
			kept = append(kept, e)
		}
	}
	c.events = kept
	c.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

// At schedules fn for when the clock has advanced by d.
func (c *TestClock) At(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, clockEvent{at: d, fn: fn})
}

// Elapsed reports how far the clock has moved.
func (c *TestClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(c.start)
}
