package modem

import "errors"

var (
	// ErrProtocol is returned when the modem answered a command with ERROR.
	ErrProtocol = errors.New("modem replied ERROR")

	// ErrTimeout is returned when no terminal line arrived within the
	// allotted window.
	//
	// A timeout says nothing about the modem's state: it may be asleep,
	// powered off or simply slow.
	ErrTimeout = errors.New("command timeout")

	// ErrMalformedResponse is returned when a command succeeded but its
	// payload lacked the expected structure (a number, a comma, a quoted
	// pair). The accompanying value is the zero value of the field.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNoDialer is returned when a Modem is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a Modem
	// that has no transport, for example when the Dialer returned none.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Modem that has
	// already been closed, and by every operation on a closed Modem.
	ErrAlreadyClosed = errors.New("modem already closed")
)
