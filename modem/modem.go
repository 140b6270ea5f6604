package modem

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"i4.energy/across/sim800l/at"
)

// Modem represents a SIM800L-class cellular modem that communicates via AT
// commands over a half-duplex line protocol.
//
// A Modem is not safe for concurrent use. Exactly one exchange may be in
// flight at a time; callers sharing a Modem must serialize access.
type Modem struct {
	// transport provides the physical connection to the modem
	transport Transport
	// clock bounds every exchange
	clock Clock
	// logger receives one debug record per exchange
	logger *slog.Logger
	// closed indicates if the modem has been shut down
	closed bool

	atTimeout     time.Duration
	pollInterval  time.Duration
	promptTimeout time.Duration
	smsTimeout    time.Duration
}

// Status is the tri-state result of an exchange.
type Status int

const (
	// StatusSuccess means the modem acknowledged the command, with or
	// without a payload line.
	StatusSuccess Status = iota
	// StatusFailure means the modem replied ERROR.
	StatusFailure
	// StatusTimeout means no terminal line arrived in time.
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result of one command/response exchange. A payload is
// only ever present together with StatusSuccess.
type Outcome struct {
	Status  Status
	payload string
	hasData bool
}

// Payload returns the trimmed data line that ended the exchange, if any.
func (o Outcome) Payload() (string, bool) {
	return o.payload, o.hasData
}

// Err maps a failed outcome onto ErrProtocol or ErrTimeout.
func (o Outcome) Err() error {
	switch o.Status {
	case StatusFailure:
		return ErrProtocol
	case StatusTimeout:
		return ErrTimeout
	default:
		return nil
	}
}

// CallOption adjusts a single command exchange.
type CallOption func(*callOptions)

type callOptions struct {
	timeout time.Duration
}

// WithTimeout overrides the modem's default command timeout for one call.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.timeout = d
	}
}

func (m *Modem) callOptions(opts []CallOption) callOptions {
	o := callOptions{timeout: m.atTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates a new Modem instance with the given configuration and opens
// its transport. No command is sent; call Begin to check the modem answers.
func New(ctx context.Context, config Config) (*Modem, error) {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial modem: %w", err)
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	return &Modem{
		transport:     transport,
		clock:         config.Clock,
		logger:        config.Logger,
		atTimeout:     config.ATTimeout,
		pollInterval:  config.PollInterval,
		promptTimeout: config.PromptTimeout,
		smsTimeout:    config.SMSTimeout,
	}, nil
}

// Close releases the transport. After calling Close(), the modem cannot be
// reused.
func (m *Modem) Close() error {
	if m.closed {
		return ErrAlreadyClosed
	}
	m.closed = true
	return m.transport.Close()
}

// Execute runs one AT command to completion:
//
//  1. Discards whatever is still buffered from an earlier exchange.
//  2. Writes the command followed by CRLF.
//  3. Reads lines until ERROR (failure), a payload line or OK (success),
//     or until the timeout elapses.
//
// Lines that are neither terminal nor payload (blank lines, short echoes)
// are skipped within the same budget. The returned error is reserved for
// transport faults, a closed modem and context cancellation; a modem-level
// failure is reported through the Outcome.
func (m *Modem) Execute(ctx context.Context, cmd string, opts ...CallOption) (Outcome, error) {
	o := m.callOptions(opts)

	start := m.clock.Now()
	if err := m.send(cmd); err != nil {
		return Outcome{}, err
	}

	out, err := m.await(ctx, o.timeout)
	if err != nil {
		return Outcome{}, err
	}

	m.logger.Debug("AT exchange",
		"command", cmd,
		"status", out.Status,
		"payload", out.payload,
		"elapsed", m.clock.Now().Sub(start))
	return out, nil
}

// send drains stale input and writes one command line.
func (m *Modem) send(cmd string) error {
	if m.closed {
		return ErrAlreadyClosed
	}
	m.drain()

	wire := strings.TrimSpace(cmd) + at.CRLF
	if _, err := m.transport.Write([]byte(wire)); err != nil {
		return fmt.Errorf("write command %q: %w", cmd, err)
	}
	return nil
}

// await classifies incoming lines until a terminal condition or timeout.
func (m *Modem) await(ctx context.Context, timeout time.Duration) (Outcome, error) {
	r := m.newLineReader(timeout)
	for {
		line, ok, err := r.next(ctx)
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			return Outcome{Status: StatusTimeout}, nil
		}

		switch at.Classify(line) {
		case at.TypeError:
			return Outcome{Status: StatusFailure}, nil
		case at.TypePayload:
			return Outcome{Status: StatusSuccess, payload: line, hasData: true}, nil
		case at.TypeOK:
			return Outcome{Status: StatusSuccess}, nil
		}
	}
}

// drainLimit caps how many stale bytes one drain discards, so a port that
// keeps streaming cannot hold the command back.
const drainLimit = 256

// drain discards up to drainLimit bytes the transport reports as
// buffered. It is best effort: bytes still on the wire are not waited for.
func (m *Modem) drain() {
	var buf [64]byte
	for budget := drainLimit; budget > 0; {
		n := m.transport.Buffered()
		if n <= 0 {
			return
		}
		read, err := m.transport.Read(buf[:min(n, len(buf), budget)])
		if err != nil || read == 0 {
			return
		}
		budget -= read
	}
}

// lineReader pulls trimmed lines off the transport one byte at a time so
// that nothing past the current line is consumed.
type lineReader struct {
	m       *Modem
	start   time.Time
	timeout time.Duration
	pending []byte
}

func (m *Modem) newLineReader(timeout time.Duration) *lineReader {
	return &lineReader{m: m, start: m.clock.Now(), timeout: timeout}
}

// next returns the next line, or ok=false once the reader's budget has
// elapsed. The SMS prompt is returned as ">".
func (r *lineReader) next(ctx context.Context) (string, bool, error) {
	var b [1]byte
	for r.m.clock.Now().Sub(r.start) < r.timeout {
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		default:
		}

		if r.m.transport.Buffered() == 0 {
			r.m.clock.Sleep(r.m.pollInterval)
			continue
		}

		n, err := r.m.transport.Read(b[:])
		if err != nil {
			return "", false, fmt.Errorf("read error: %w", err)
		}
		if n == 0 {
			continue
		}
		r.pending = append(r.pending, b[0])

		advance, token, _ := at.Splitter(r.pending, false)
		if advance == 0 {
			continue
		}
		line := strings.TrimSpace(string(token))
		r.pending = r.pending[advance:]
		return line, true, nil
	}
	return "", false, nil
}
