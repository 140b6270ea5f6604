package modem

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Transport represents an established, bidirectional byte stream to a GSM modem.
//
// A Transport is assumed to be already connected and ready for use. Reads are
// expected to be poll-based: the engine only calls Read after Buffered has
// reported pending bytes, and never waits on a Read for data that has not
// arrived yet. Typical implementations include serial ports or in-memory
// fakes used for testing.
type Transport interface {
	io.ReadWriteCloser

	// Buffered returns the number of bytes that can be read without blocking.
	Buffered() int
}

// Dialer opens a Transport to a GSM modem.
//
// Dialer abstracts how the modem connection is created (for example, via a
// serial port or a test double) and is intended to be used during modem
// construction only. Once a Transport is obtained, the Dialer is no longer
// needed.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport. It may
	// perform blocking operations and should respect cancellation and deadlines
	// provided by the context. Dial returns an error if the transport cannot be
	// established.
	Dial(ctx context.Context) (Transport, error)
}

// DialerFunc adapts an ordinary function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Transport, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (Transport, error) {
	return f(ctx)
}

const (
	// DefaultBaudRate is the rate the SIM800L auto-bauds to out of the box.
	DefaultBaudRate = 115200
	// DefaultSerialPoll bounds how long a Buffered call may wait on the port.
	DefaultSerialPoll = time.Millisecond

	serialChunk = 256
)

// SerialDialer opens a GSM modem over a serial port using go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. /dev/ttyUSB0 or /dev/serial0.
	PortName string
	// BaudRate is used when Mode is nil.
	BaudRate int
	// Mode overrides the default 8N1 mode.
	Mode *serial.Mode
	// Poll is the read timeout applied to the port; it bounds Buffered.
	Poll time.Duration
}

// Dial opens the serial port and wraps it in a poll-based Transport.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("sim800l: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("sim800l: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = DefaultBaudRate
		}
		mode = &serial.Mode{
			BaudRate: baud,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", d.PortName, err)
	}

	poll := d.Poll
	if poll <= 0 {
		poll = DefaultSerialPoll
	}
	if err := port.SetReadTimeout(poll); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", d.PortName, err)
	}

	return newSerialTransport(port), nil
}

// serialTransport turns a serial.Port into a Transport. The port has no
// "bytes available" query, so Buffered performs one short timed read and
// keeps whatever arrived for the following Read calls.
type serialTransport struct {
	port    serial.Port
	pending []byte
	chunk   [serialChunk]byte
}

func newSerialTransport(port serial.Port) *serialTransport {
	return &serialTransport{port: port}
}

func (s *serialTransport) Buffered() int {
	if len(s.pending) == 0 {
		s.fill()
	}
	return len(s.pending)
}

func (s *serialTransport) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		if err := s.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *serialTransport) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *serialTransport) Close() error {
	s.pending = nil
	return s.port.Close()
}

// fill reads at most one chunk, waiting no longer than the port's read
// timeout. A timeout is reported by the port as a zero-length read.
func (s *serialTransport) fill() error {
	n, err := s.port.Read(s.chunk[:])
	if n > 0 {
		s.pending = append(s.pending, s.chunk[:n]...)
	}
	return err
}
