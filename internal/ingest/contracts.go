package ingest

import "github.com/circue/gwlog/internal/model"

const (
	// ProcessorNameGateway is the single processor implementation name.
	ProcessorNameGateway = "gateway"
)

// RecordSink receives canonical records for storage.
type RecordSink interface {
	Add(record *model.MessageRecord)
}

// EnvelopeProcessor consumes source-tagged ingest lines and emits canonical records.
type EnvelopeProcessor interface {
	Name() string
	ProcessEnvelope(model.IngestEnvelope) *ProcessResult
}

// NewEnvelopeProcessor creates the gateway line processor implementation.
func NewEnvelopeProcessor(sink RecordSink, sourceName string, conf ...Config) EnvelopeProcessor {
	return NewProcessor(sink, sourceName, conf...)
}
