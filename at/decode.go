package at

import (
	"math"
	"strings"
)

// Strip removes a fixed-width response header. Headers longer than the
// line leave nothing behind.
func Strip(line string, n int) string {
	if n <= 0 {
		return line
	}
	if n >= len(line) {
		return ""
	}
	return line[n:]
}

// ParseInt reads the integer at the start of s, skipping leading
// whitespace and stopping at the first non-digit. ok is false when no
// digit was found or the value does not fit in an int, in which case the
// value is 0.
func ParseInt(s string) (n int, ok bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			break
		}
		d := int(c - '0')
		if n > (math.MaxInt-d)/10 {
			return 0, false
		}
		n = n*10 + d
		ok = true
	}
	if neg {
		n = -n
	}
	return n, ok
}

// ParsePair splits s at the first comma and parses both sides with
// ParseInt. Without a comma both values are 0 and ok is false; a side
// that does not parse also clears ok but keeps the other value.
func ParsePair(s string) (first, second int, ok bool) {
	left, right, found := strings.Cut(s, ",")
	if !found {
		return 0, 0, false
	}
	first, okFirst := ParseInt(left)
	second, okSecond := ParseInt(right)
	return first, second, okFirst && okSecond
}

// Quoted returns the text between the first double quote and the one
// following it. An empty pair counts as absent.
func Quoted(s string) (string, bool) {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end <= 0 {
		return "", false
	}
	return s[start+1 : start+1+end], true
}
