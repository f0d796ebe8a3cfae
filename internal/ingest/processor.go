package ingest

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/circue/gwlog/internal/gwparse"
	"github.com/circue/gwlog/internal/model"
)

// Processor parses raw gateway log lines and routes the resulting records to
// storage. Lines that match the grammar become message records; lines with
// undecodable payloads or grammar failures are counted and skipped.
type Processor struct {
	mu         sync.RWMutex
	sink       RecordSink
	sourceName string
	parser     *gwparse.LineParser

	parsed           atomic.Int64
	invalidPayload   atomic.Int64
	malformed        atomic.Int64
	invalidTimestamp atomic.Int64

	lastDiagLog atomic.Int64 // unix timestamp of last rejected-line log
}

// Config holds tunable parameters for the processor.
type Config struct {
	// SourceUTCOffsetHours is forwarded to the line parser's timestamp stage.
	SourceUTCOffsetHours *int
}

// ProcessResult holds the result of processing one log line.
type ProcessResult struct {
	Record  *model.MessageRecord // nil unless the line produced an envelope
	Outcome gwparse.Outcome
}

// NewProcessor creates a new gateway line processor.
func NewProcessor(sink RecordSink, sourceName string, conf ...Config) *Processor {
	parserConf := gwparse.DefaultConfig()
	if len(conf) > 0 && conf[0].SourceUTCOffsetHours != nil {
		parserConf.SourceUTCOffsetHours = *conf[0].SourceUTCOffsetHours
	}
	return &Processor{
		sink:       sink,
		sourceName: sourceName,
		parser:     gwparse.NewLineParser(parserConf),
	}
}

func (p *Processor) Name() string { return ProcessorNameGateway }

// ProcessLine processes an untagged line using the processor source name.
func (p *Processor) ProcessLine(line string) *ProcessResult {
	return p.ProcessEnvelope(model.IngestEnvelope{
		Source: p.getSourceName(),
		Line:   line,
	})
}

// ProcessEnvelope parses one source-tagged line and stores the record when the
// line yields an envelope.
func (p *Processor) ProcessEnvelope(env model.IngestEnvelope) *ProcessResult {
	if env.Line == "" {
		return nil
	}

	source := env.Source
	if source == "" {
		source = p.getSourceName()
	}

	res := p.parser.ParseLine(env.Line)
	switch res.Outcome {
	case gwparse.OutcomeParsed:
		p.parsed.Add(1)
	case gwparse.OutcomeInvalidPayload:
		p.invalidPayload.Add(1)
		p.logRejectedLine("invalid payload", source, env.Line, res.Err)
		return &ProcessResult{Outcome: res.Outcome}
	case gwparse.OutcomeMalformed:
		p.malformed.Add(1)
		p.logRejectedLine("malformed line", source, env.Line, res.Err)
		return &ProcessResult{Outcome: res.Outcome}
	}

	if res.TimestampErr != nil {
		// The envelope carries the 0 sentinel; the record marks it invalid.
		p.invalidTimestamp.Add(1)
		log.Printf("ingest: unconvertible timestamp (source=%s): %v", source, res.TimestampErr)
	}

	record := &model.MessageRecord{
		Envelope:        *res.Envelope,
		ServerTimeValid: res.TimestampErr == nil,
		RawLine:         env.Line,
		Source:          source,
		ReceivedAt:      time.Now(),
	}

	if p.sink != nil {
		p.sink.Add(record)
	}

	return &ProcessResult{Record: record, Outcome: res.Outcome}
}

// logRejectedLine emits a throttled diagnostic (at most once per 10 seconds)
// with a snippet of the offending line. Counters carry the full totals.
func (p *Processor) logRejectedLine(kind, source, line string, cause error) {
	now := time.Now().Unix()
	last := p.lastDiagLog.Load()
	if now-last < 10 || !p.lastDiagLog.CompareAndSwap(last, now) {
		return
	}
	const maxSnippet = 200
	if len(line) > maxSnippet {
		line = line[:maxSnippet] + "..."
	}
	log.Printf("ingest: %s (source=%s): %v: %q", kind, source, cause, line)
}

// Stats is a snapshot of the processor's outcome counters.
type Stats struct {
	Parsed            int64 `json:"parsed"`
	InvalidPayload    int64 `json:"invalid_payload"`
	Malformed         int64 `json:"malformed"`
	InvalidTimestamps int64 `json:"invalid_timestamps"`
}

// Stats returns the outcome counters accumulated since startup.
func (p *Processor) Stats() Stats {
	return Stats{
		Parsed:            p.parsed.Load(),
		InvalidPayload:    p.invalidPayload.Load(),
		Malformed:         p.malformed.Load(),
		InvalidTimestamps: p.invalidTimestamp.Load(),
	}
}

// SetSourceName updates the default source name for untagged lines.
func (p *Processor) SetSourceName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sourceName = name
}

func (p *Processor) getSourceName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sourceName
}
