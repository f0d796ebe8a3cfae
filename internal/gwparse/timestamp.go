package gwparse

import (
	"strings"
	"time"
)

// DefaultSourceUTCOffsetHours is the fixed shift applied to converted epoch
// values. The gateway writes local wall-clock time into the log but the
// conversion treats it as UTC, so the stored convention is corrected by -8h.
// Changing this changes the meaning of every stored server_time.
const DefaultSourceUTCOffsetHours = -8

// epochLayout accepts one- or two-digit date/time groups and a variable-width
// fraction, matching what the gateway actually emits.
const epochLayout = "2006-1-2 15:4:5.999999999"

// TimestampValue is a converted gateway timestamp. ConvErr is non-nil when the
// token matched the grammar but calendar conversion failed; Millis is then the
// sentinel 0. Callers that need to tell "epoch midnight" from "unparseable"
// check ConvErr.
type TimestampValue struct {
	Millis  int64
	ConvErr error
}

// EpochMillis converts a canonical "YYYY-MM-DD HH:MM:SS.fff" string into epoch
// milliseconds, shifted by offsetHours. On conversion failure it returns the
// sentinel 0 together with the error.
func EpochMillis(datetime string, offsetHours int) (int64, error) {
	t, err := time.Parse(epochLayout, datetime)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli() + int64(offsetHours)*3600*1000, nil
}

// timestamp consumes a token of the form
// <digits>-<digits>-<digits> <digits>:<digits>:<digits>.<digits>
// and converts it via EpochMillis. A grammar mismatch returns err; a
// conversion failure is soft and lands in TimestampValue.ConvErr.
func (p *LineParser) timestamp(s *scanner) (TimestampValue, error) {
	date, err := s.separatedDigits(StageTimestamp, '-')
	if err != nil {
		return TimestampValue{}, err
	}
	if err := s.spaces1(StageTimestamp); err != nil {
		return TimestampValue{}, err
	}
	clock, err := s.separatedDigits(StageTimestamp, ':')
	if err != nil {
		return TimestampValue{}, err
	}
	if err := s.literal(StageTimestamp, "."); err != nil {
		return TimestampValue{}, err
	}
	frac, err := s.digits(StageTimestamp)
	if err != nil {
		return TimestampValue{}, err
	}

	canonical := strings.Join(date, "-") + " " + strings.Join(clock, ":") + "." + frac
	millis, convErr := EpochMillis(canonical, p.offsetHours)
	return TimestampValue{Millis: millis, ConvErr: convErr}, nil
}

// separatedDigits consumes one or more digit runs joined by sep.
func (s *scanner) separatedDigits(stage string, sep byte) ([]string, error) {
	first, err := s.digits(stage)
	if err != nil {
		return nil, err
	}
	groups := []string{first}
	for s.pos < len(s.input) && s.input[s.pos] == sep {
		mark := s.pos
		s.pos++
		next, err := s.digits(stage)
		if err != nil {
			// Trailing separator belongs to whatever follows.
			s.pos = mark
			break
		}
		groups = append(groups, next)
	}
	return groups, nil
}
