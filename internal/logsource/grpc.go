package logsource

import (
	"github.com/circue/gwlog/internal/grpcserver"
	"github.com/circue/gwlog/internal/model"
)

// GRPCSource wraps a grpcserver.Server as a LogSource.
type GRPCSource struct {
	server *grpcserver.Server
}

// NewGRPCSource creates a GRPCSource from an already-started OTLP server.
func NewGRPCSource(server *grpcserver.Server) *GRPCSource {
	return &GRPCSource{server: server}
}

func (g *GRPCSource) Lines() <-chan model.IngestEnvelope { return g.server.Lines() }
func (g *GRPCSource) Stop()                              { _ = g.server.Stop() }
func (g *GRPCSource) Name() string                       { return "grpc" }
