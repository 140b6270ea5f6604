package at

import (
	"bufio"
	"bytes"
	"strings"
)

// PayloadThreshold is the longest line that can still be a bare sentinel.
// Anything longer is taken as the data line of the current command. The
// value is the length of ERROR, so a payload of five characters or fewer
// is indistinguishable from an acknowledgement.
const PayloadThreshold = len(ERROR)

// Splitter is used for tokenizing AT command modem responses. It uses
// the signature of bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// Lines are terminated by LF; a preceding CR is left in the token and
// removed by the caller's trim. The SMS input prompt ("> ") is returned as
// a token of its own since the modem never terminates it.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if bytes.HasPrefix(data, []byte(Prompt)) {
		return len(Prompt), data[0:len(Prompt)], nil
	}

	if i := bytes.IndexByte(data, LF[0]); i >= 0 {
		return i + 1, data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// IsPayload reports whether a trimmed line carries command data rather
// than a bare acknowledgement.
func IsPayload(line string) bool {
	return len(line) > PayloadThreshold
}

// Classify identifies the nature of a trimmed modem line. The order of the
// checks matters: ERROR is matched before the length heuristic.
func Classify(line string) ResponseType {
	switch {
	case line == ERROR:
		return TypeError
	case IsPayload(line):
		return TypePayload
	case line == OK:
		return TypeOK
	case line == strings.TrimSpace(Prompt):
		return TypePrompt
	default:
		return TypeNone
	}
}

// IsFinalError reports whether a line rejects the current command,
// including the extended +CMS/+CME forms.
func IsFinalError(line string) bool {
	return line == ERROR || strings.HasPrefix(line, CmsError) || strings.HasPrefix(line, CmeError)
}
