package modem

import (
	"context"
	"fmt"
	"strings"
	"time"

	"i4.energy/across/sim800l/at"
)

// smsState is a step of the text-mode send sequence.
type smsState int

const (
	smsIdle        smsState = iota // nothing written yet
	smsCommandSent                 // AT+CMGS written, waiting for the prompt
	smsBodySent                    // text written, terminator pending
	smsAwaitingAck                 // terminator written, waiting for OK
	smsDone
	smsFailed
)

func (s smsState) String() string {
	switch s {
	case smsIdle:
		return "idle"
	case smsCommandSent:
		return "command-sent"
	case smsBodySent:
		return "body-sent"
	case smsAwaitingAck:
		return "awaiting-ack"
	case smsDone:
		return "done"
	case smsFailed:
		return "failed"
	default:
		return fmt.Sprintf("smsState(%d)", int(s))
	}
}

// smsSend drives one message through the send sequence. Unlike a regular
// exchange, the body is framed by the prompt and a trailing Ctrl-Z rather
// than by a line terminator.
type smsSend struct {
	m      *Modem
	number string
	text   string

	state     smsState
	err       error
	reference string
}

// SendSMS sends a text message to the given number, e.g. "+48501501501".
//
// It switches the modem to text mode, issues AT+CMGS, writes the body once
// the "> " prompt appears, terminates it with Ctrl-Z and waits for the
// final OK. The call blocks until the network accepted the message, the
// modem rejected it, or a timeout expired.
//
// A rejected AT+CMGF=1 aborts the send before AT+CMGS is written, where
// the Arduino SIM800L library ignores that reply and carries on.
func (m *Modem) SendSMS(ctx context.Context, number, text string) error {
	s := &smsSend{m: m, number: number, text: text}
	if err := s.run(ctx); err != nil {
		m.logger.Warn("SMS send failed", "to", number, "state", s.state, "error", err)
		return err
	}
	m.logger.Debug("SMS sent", "to", number, "reference", s.reference)
	return nil
}

func (s *smsSend) run(ctx context.Context) error {
	for s.state != smsDone && s.state != smsFailed {
		s.step(ctx)
	}
	return s.err
}

// step performs the action of the current state and moves to the next.
func (s *smsSend) step(ctx context.Context) {
	switch s.state {
	case smsIdle:
		if err := s.m.expectOK(ctx, at.CmdSetTextMode, nil); err != nil {
			s.fail(fmt.Errorf("set SMS text mode: %w", err))
			return
		}
		if err := s.m.send(fmt.Sprintf(at.CmdSendSMS, s.number)); err != nil {
			s.fail(err)
			return
		}
		s.state = smsCommandSent

	case smsCommandSent:
		if err := s.awaitPrompt(ctx); err != nil {
			s.fail(err)
			return
		}
		if err := s.write([]byte(s.text)); err != nil {
			s.fail(err)
			return
		}
		s.state = smsBodySent

	case smsBodySent:
		if err := s.write([]byte{at.CtrlZ}); err != nil {
			s.fail(err)
			return
		}
		s.state = smsAwaitingAck

	case smsAwaitingAck:
		if err := s.awaitAck(ctx); err != nil {
			s.fail(err)
			return
		}
		s.state = smsDone
	}
}

func (s *smsSend) fail(err error) {
	s.err = err
	s.state = smsFailed
}

func (s *smsSend) write(p []byte) error {
	if _, err := s.m.transport.Write(p); err != nil {
		return fmt.Errorf("write SMS %s: %w", s.state, err)
	}
	return nil
}

func (s *smsSend) awaitPrompt(ctx context.Context) error {
	return s.awaitLine(ctx, s.m.promptTimeout, func(line string) bool {
		return at.Classify(line) == at.TypePrompt
	})
}

func (s *smsSend) awaitAck(ctx context.Context) error {
	return s.awaitLine(ctx, s.m.smsTimeout, func(line string) bool {
		if ref, ok := strings.CutPrefix(line, at.SMSReference); ok {
			s.reference = strings.TrimSpace(ref)
		}
		return line == at.OK
	})
}

// awaitLine reads lines until done reports true, the modem rejects the
// message or the timeout expires.
func (s *smsSend) awaitLine(ctx context.Context, timeout time.Duration, done func(string) bool) error {
	r := s.m.newLineReader(timeout)
	for {
		line, ok, err := r.next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("AT+CMGS %s: %w", s.state, ErrTimeout)
		}
		if at.IsFinalError(line) {
			return fmt.Errorf("AT+CMGS %s: %w: %s", s.state, ErrProtocol, line)
		}
		if done(line) {
			return nil
		}
	}
}
