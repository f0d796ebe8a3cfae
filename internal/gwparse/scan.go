package gwparse

import (
	"errors"
	"fmt"
)

// Stage names identify which grammar stage failed to match.
const (
	StageTimestamp = "timestamp"
	StageTuple     = "network-tuple"
	StagePayload   = "payload"
	StageSpacing   = "spacing"
)

// ErrPortOutOfRange marks a port digit run that does not fit in 32 bits.
var ErrPortOutOfRange = errors.New("port out of range")

// ParseError reports a grammar mismatch at a specific stage and byte offset.
type ParseError struct {
	Stage string
	Pos   int
	Msg   string
	Err   error // underlying cause, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gwparse: %s at byte %d: %s: %v", e.Stage, e.Pos, e.Msg, e.Err)
	}
	return fmt.Sprintf("gwparse: %s at byte %d: %s", e.Stage, e.Pos, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// scanner is a byte-position cursor over one input line. All token parsers
// either consume their expected token or leave the position untouched and
// return a *ParseError.
type scanner struct {
	input string
	pos   int
}

func newScanner(input string) *scanner {
	return &scanner{input: input}
}

func (s *scanner) rest() string {
	return s.input[s.pos:]
}

func (s *scanner) errf(stage, format string, args ...interface{}) *ParseError {
	return &ParseError{Stage: stage, Pos: s.pos, Msg: fmt.Sprintf(format, args...)}
}

// digits consumes a run of one or more decimal digits.
func (s *scanner) digits(stage string) (string, error) {
	start := s.pos
	for s.pos < len(s.input) && s.input[s.pos] >= '0' && s.input[s.pos] <= '9' {
		s.pos++
	}
	if s.pos == start {
		return "", s.errf(stage, "expected digits")
	}
	return s.input[start:s.pos], nil
}

// literal consumes the exact tag.
func (s *scanner) literal(stage, tag string) error {
	if len(s.input)-s.pos < len(tag) || s.input[s.pos:s.pos+len(tag)] != tag {
		return s.errf(stage, "expected %q", tag)
	}
	s.pos += len(tag)
	return nil
}

// until consumes a run of one or more characters up to (not including) the
// first occurrence of delim. The delimiter itself is not consumed.
func (s *scanner) until(stage string, delim byte) (string, error) {
	rest := s.rest()
	idx := -1
	for i := 0; i < len(rest); i++ {
		if rest[i] == delim {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return "", s.errf(stage, "expected text before %q", string(delim))
	}
	s.pos += idx
	return rest[:idx], nil
}

// spaces1 consumes one or more spaces or tabs.
func (s *scanner) spaces1(stage string) error {
	start := s.pos
	for s.pos < len(s.input) && (s.input[s.pos] == ' ' || s.input[s.pos] == '\t') {
		s.pos++
	}
	if s.pos == start {
		return s.errf(stage, "expected whitespace")
	}
	return nil
}

// newlines0 consumes zero or more trailing newline characters.
func (s *scanner) newlines0() {
	for s.pos < len(s.input) && s.input[s.pos] == '\n' {
		s.pos++
	}
}

// lineRemainder consumes everything up to (not including) the next line break.
// The remainder may be empty.
func (s *scanner) lineRemainder() string {
	start := s.pos
	for s.pos < len(s.input) && s.input[s.pos] != '\n' && s.input[s.pos] != '\r' {
		s.pos++
	}
	return s.input[start:s.pos]
}
