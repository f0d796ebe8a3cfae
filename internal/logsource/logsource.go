package logsource

import "github.com/circue/gwlog/internal/model"

// LogSource is a unified interface for all gateway log inputs (TCP, gRPC, stdin).
type LogSource interface {
	Lines() <-chan model.IngestEnvelope // read-only channel of raw log lines
	Stop()                              // graceful shutdown
	Name() string                       // "tcp", "grpc", "stdin"
}
