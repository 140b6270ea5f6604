package modem

import (
	"context"
	"fmt"

	"i4.energy/across/sim800l/at"
)

// query is one read-only catalog entry: the command to send and the width
// of the response header to strip before decoding.
type query struct {
	cmd   string
	strip int
}

var (
	querySignal        = query{cmd: at.CmdSignalQuality, strip: 6} // "+CSQ: ", not the Arduino library's 7, which eats the first RSSI digit
	queryRegistration  = query{cmd: at.CmdRegistration, strip: 7}  // "+CREG: "
	queryOperator      = query{cmd: at.CmdOperator, strip: 12}     // "+COPS: 0,0,\""
	queryBattery       = query{cmd: at.CmdBattery, strip: 8}       // "+CBC: 0," (charge state skipped)
	queryFunctionality = query{cmd: at.CmdFunctionality, strip: 7} // "+CFUN: "
	querySleep         = query{cmd: at.CmdSleep, strip: 7}         // "+CSCLK:", the space is trimmed by ParseInt
	queryCCID          = query{cmd: at.CmdCCID}
	queryModuleInfo    = query{cmd: at.CmdModuleInfo}
	queryPhoneNumber   = query{cmd: at.CmdPhoneNumber}
)

// Signal is the decoded AT+CSQ reply. Raw is the first reported field
// (RSSI, 0-31 or 99) and Percent the second one.
type Signal struct {
	Raw     int
	Percent int
}

// Battery is the decoded AT+CBC reply: charge level in percent and
// voltage in millivolts.
type Battery struct {
	Percent int
	Voltage int
}

// run executes a query and returns its stripped payload. A success
// without a payload line yields an empty string.
func (m *Modem) run(ctx context.Context, q query, opts []CallOption) (string, error) {
	out, err := m.Execute(ctx, q.cmd, opts...)
	if err != nil {
		return "", err
	}
	if err := out.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", q.cmd, err)
	}
	payload, _ := out.Payload()
	return at.Strip(payload, q.strip), nil
}

// expectOK executes a command whose only result is success or failure.
func (m *Modem) expectOK(ctx context.Context, cmd string, opts []CallOption) error {
	out, err := m.Execute(ctx, cmd, opts...)
	if err != nil {
		return err
	}
	if err := out.Err(); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

func (m *Modem) runInt(ctx context.Context, q query, opts []CallOption) (int, error) {
	s, err := m.run(ctx, q, opts)
	if err != nil {
		return 0, err
	}
	n, ok := at.ParseInt(s)
	if !ok {
		return 0, malformed(q.cmd, s)
	}
	return n, nil
}

func (m *Modem) runPair(ctx context.Context, q query, opts []CallOption) (int, int, error) {
	s, err := m.run(ctx, q, opts)
	if err != nil {
		return 0, 0, err
	}
	first, second, ok := at.ParsePair(s)
	if !ok {
		// ParsePair keeps the side that parsed; only a missing comma zeroes both.
		return first, second, malformed(q.cmd, s)
	}
	return first, second, nil
}

func malformed(cmd, payload string) error {
	return fmt.Errorf("%s: %w: %q", cmd, ErrMalformedResponse, payload)
}

// Begin checks that the modem answers. It is an alias of Ping.
func (m *Modem) Begin(ctx context.Context, opts ...CallOption) error {
	return m.Ping(ctx, opts...)
}

// Ping sends a bare AT.
func (m *Modem) Ping(ctx context.Context, opts ...CallOption) error {
	return m.expectOK(ctx, at.CmdAt, opts)
}

// Command sends an arbitrary AT command and returns the payload line, or
// an empty string when the modem only acknowledged it.
func (m *Modem) Command(ctx context.Context, cmd string, opts ...CallOption) (string, error) {
	return m.run(ctx, query{cmd: cmd}, opts)
}

// SetEcho switches command echo. With echo on, the echoed command line is
// longer than any sentinel and ends every exchange as its payload, so the
// typed accessors expect echo off.
func (m *Modem) SetEcho(ctx context.Context, on bool, opts ...CallOption) error {
	cmd := at.CmdEchoOff
	if on {
		cmd = at.CmdEchoOn
	}
	return m.expectOK(ctx, cmd, opts)
}

// SignalQuality reads AT+CSQ. When only one side of the pair parses, that
// side is still returned alongside ErrMalformedResponse.
func (m *Modem) SignalQuality(ctx context.Context, opts ...CallOption) (Signal, error) {
	raw, percent, err := m.runPair(ctx, querySignal, opts)
	return Signal{Raw: raw, Percent: percent}, err
}

// Battery reads AT+CBC. Partial readings are kept as for SignalQuality.
func (m *Modem) Battery(ctx context.Context, opts ...CallOption) (Battery, error) {
	percent, voltage, err := m.runPair(ctx, queryBattery, opts)
	return Battery{Percent: percent, Voltage: voltage}, err
}

// CCID returns the SIM card identifier as reported.
func (m *Modem) CCID(ctx context.Context, opts ...CallOption) (string, error) {
	return m.run(ctx, queryCCID, opts)
}

// RegistrationStatus returns the "<n>,<stat>" part of AT+CREG?.
func (m *Modem) RegistrationStatus(ctx context.Context, opts ...CallOption) (string, error) {
	return m.run(ctx, queryRegistration, opts)
}

// ModuleInfo returns the ATI identification line.
func (m *Modem) ModuleInfo(ctx context.Context, opts ...CallOption) (string, error) {
	return m.run(ctx, queryModuleInfo, opts)
}

// NetworkName returns the operator part of AT+COPS? after the fixed
// header. The text is not unquoted further.
func (m *Modem) NetworkName(ctx context.Context, opts ...CallOption) (string, error) {
	return m.run(ctx, queryOperator, opts)
}

// PhoneNumber returns the first quoted field of AT+CNUM, which the
// SIM800L fills with the number's alpha tag.
func (m *Modem) PhoneNumber(ctx context.Context, opts ...CallOption) (string, error) {
	s, err := m.run(ctx, queryPhoneNumber, opts)
	if err != nil {
		return "", err
	}
	v, ok := at.Quoted(s)
	if !ok {
		return "", malformed(queryPhoneNumber.cmd, s)
	}
	return v, nil
}

// Functionality reads the AT+CFUN? level.
func (m *Modem) Functionality(ctx context.Context, opts ...CallOption) (int, error) {
	return m.runInt(ctx, queryFunctionality, opts)
}

// SetFunctionality sets the AT+CFUN level (0 minimum, 1 full, 4 flight).
func (m *Modem) SetFunctionality(ctx context.Context, mode int, opts ...CallOption) error {
	return m.expectOK(ctx, fmt.Sprintf(at.CmdSetFunctionality, mode), opts)
}

// Sleep reads the AT+CSCLK? slow clock mode.
func (m *Modem) Sleep(ctx context.Context, opts ...CallOption) (int, error) {
	return m.runInt(ctx, querySleep, opts)
}

// SetSleep enables (mode 2) or disables (mode 0) the slow clock.
func (m *Modem) SetSleep(ctx context.Context, sleep bool, opts ...CallOption) error {
	cmd := at.CmdSleepOff
	if sleep {
		cmd = at.CmdSleepOn
	}
	return m.expectOK(ctx, cmd, opts)
}

// PowerOff asks the modem for a normal power down.
func (m *Modem) PowerOff(ctx context.Context, opts ...CallOption) error {
	return m.expectOK(ctx, at.CmdPowerOff, opts)
}
