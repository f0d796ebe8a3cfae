// Package gwparse implements the grammar-driven parser for raw gateway log
// lines. One line has the fixed layout
//
//	timestamp WS [client:port#server:port] WS ("D:"|"R:")payload NEWLINE*
//
// and parses in that exact order with no backtracking: each stage either
// consumes its expected token or the whole parse fails. The parser is pure and
// stateless; lines can be parsed concurrently without coordination.
package gwparse

import "github.com/circue/gwlog/internal/model"

// Outcome tags the result of parsing one gateway log line.
type Outcome int

const (
	// OutcomeParsed means the line matched the grammar and produced an envelope.
	OutcomeParsed Outcome = iota

	// OutcomeInvalidPayload means the grammar matched but the IEC 104 hex
	// payload did not decode. The line yields no envelope and is skipped;
	// this is not a parse failure.
	OutcomeInvalidPayload

	// OutcomeMalformed means a grammar stage failed to match.
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeParsed:
		return "parsed"
	case OutcomeInvalidPayload:
		return "invalid-payload"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Result is the outcome of ParseLine. The three outcomes stay distinguishable
// so a batch driver can count and report them separately.
type Result struct {
	Outcome  Outcome
	Envelope *model.Envelope // set only for OutcomeParsed
	Rest     string          // unconsumed input after the line
	Line     string          // the input given to ParseLine, for reporting

	// TimestampErr records a timestamp conversion failure that was coerced
	// to the 0 sentinel in Envelope.ServerTime.
	TimestampErr error

	// Err is the *ParseError for OutcomeMalformed, or the hex decode error
	// for OutcomeInvalidPayload.
	Err error
}

// Config holds tunable parameters for the line parser.
type Config struct {
	// SourceUTCOffsetHours is the shift added to converted epoch values.
	SourceUTCOffsetHours int
}

// DefaultConfig returns the parser configuration matching the gateway's
// stored-timestamp convention.
func DefaultConfig() Config {
	return Config{SourceUTCOffsetHours: DefaultSourceUTCOffsetHours}
}

// LineParser assembles the per-stage parsers into the full line grammar.
type LineParser struct {
	offsetHours int
}

// NewLineParser creates a line parser. Without an explicit Config the
// default -8h timestamp correction applies.
func NewLineParser(conf ...Config) *LineParser {
	cfg := DefaultConfig()
	if len(conf) > 0 {
		cfg = conf[0]
	}
	return &LineParser{offsetHours: cfg.SourceUTCOffsetHours}
}

// ParseTimestamp parses a timestamp token at the start of input and converts
// it to epoch milliseconds. rest is the unconsumed input.
func (p *LineParser) ParseTimestamp(input string) (TimestampValue, string, error) {
	s := newScanner(input)
	ts, err := p.timestamp(s)
	if err != nil {
		return TimestampValue{}, input, err
	}
	return ts, s.rest(), nil
}

// ParseLine parses one raw gateway log line into an envelope.
func (p *LineParser) ParseLine(input string) Result {
	s := newScanner(input)

	ts, err := p.timestamp(s)
	if err != nil {
		return Result{Outcome: OutcomeMalformed, Line: input, Rest: input, Err: err}
	}
	if err := s.spaces1(StageSpacing); err != nil {
		return Result{Outcome: OutcomeMalformed, Line: input, Rest: input, Err: err}
	}
	network, err := parseTuple(s)
	if err != nil {
		return Result{Outcome: OutcomeMalformed, Line: input, Rest: input, Err: err}
	}
	if err := s.spaces1(StageSpacing); err != nil {
		return Result{Outcome: OutcomeMalformed, Line: input, Rest: input, Err: err}
	}
	body, err := payload(s)
	if err != nil {
		return Result{Outcome: OutcomeMalformed, Line: input, Rest: input, Err: err}
	}
	s.newlines0()

	// The message type is recomputed from the client port rather than copied
	// from NetworkInfo; both go through Protocol so they cannot drift.
	messageType := Protocol(network.Client.Port)

	message, err := DecodePayload(messageType, body)
	if err != nil {
		return Result{
			Outcome:      OutcomeInvalidPayload,
			Line:         input,
			Rest:         s.rest(),
			TimestampErr: ts.ConvErr,
			Err:          err,
		}
	}

	envelope := model.NewEnvelope(
		ts.Millis,
		network.Client.Host, network.Client.Port,
		network.Server.Host, network.Server.Port,
		network.Protocol,
		message,
		messageType,
	)

	return Result{
		Outcome:      OutcomeParsed,
		Envelope:     envelope,
		Line:         input,
		Rest:         s.rest(),
		TimestampErr: ts.ConvErr,
	}
}
