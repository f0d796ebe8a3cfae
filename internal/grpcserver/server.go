// Package grpcserver accepts gateway log lines over the OTLP logs gRPC
// service. Each log record body is one raw gateway line; the collector
// pipeline on the gateway side handles batching and retries.
package grpcserver

import (
	"context"
	"log"
	"net"
	"sync"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"google.golang.org/grpc"

	"github.com/circue/gwlog/internal/model"
)

const (
	// DefaultLineChannelSize is the default buffer size for the incoming log line channel.
	DefaultLineChannelSize = 100_000

	// DefaultMaxRecvMsgSize bounds a single OTLP export request.
	DefaultMaxRecvMsgSize = 16 * 1024 * 1024 // 16MB
)

// ServerConfig holds tunable parameters for the gRPC server.
type ServerConfig struct {
	LineChannelSize int
	MaxRecvMsgSize  int
}

// Server implements the OTLP LogsService and feeds received lines into the
// ingest pipeline.
type Server struct {
	collogspb.UnimplementedLogsServiceServer

	addr       string
	lineChan   chan model.IngestEnvelope
	grpcServer *grpc.Server
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// NewServer creates a new OTLP ingest server. Default addr is "127.0.0.1:4317".
func NewServer(addr string, conf ...ServerConfig) *Server {
	if addr == "" {
		addr = "127.0.0.1:4317"
	}
	lineChannelSize := DefaultLineChannelSize
	maxRecvMsgSize := DefaultMaxRecvMsgSize
	if len(conf) > 0 {
		if conf[0].LineChannelSize > 0 {
			lineChannelSize = conf[0].LineChannelSize
		}
		if conf[0].MaxRecvMsgSize > 0 {
			maxRecvMsgSize = conf[0].MaxRecvMsgSize
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:       addr,
		lineChan:   make(chan model.IngestEnvelope, lineChannelSize),
		grpcServer: grpc.NewServer(grpc.MaxRecvMsgSize(maxRecvMsgSize)),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins serving the OTLP logs service.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()

	collogspb.RegisterLogsServiceServer(s.grpcServer, s)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.grpcServer.Serve(listener); err != nil {
			select {
			case <-s.ctx.Done():
			default:
				log.Printf("grpcserver: serve error: %v", err)
			}
		}
	}()
	return nil
}

// Export receives one OTLP logs export request. Every log record body string
// is treated as one raw gateway line. Lines that do not fit in the channel are
// reported back as rejected so the sender can retry.
func (s *Server) Export(ctx context.Context, req *collogspb.ExportLogsServiceRequest) (*collogspb.ExportLogsServiceResponse, error) {
	var rejected int64
	for _, rl := range req.GetResourceLogs() {
		for _, sl := range rl.GetScopeLogs() {
			for _, rec := range sl.GetLogRecords() {
				line := rec.GetBody().GetStringValue()
				if line == "" {
					continue
				}
				select {
				case s.lineChan <- model.IngestEnvelope{Source: "grpc", Line: line}:
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-s.ctx.Done():
					return nil, s.ctx.Err()
				default:
					rejected++
				}
			}
		}
	}

	resp := &collogspb.ExportLogsServiceResponse{}
	if rejected > 0 {
		resp.PartialSuccess = &collogspb.ExportLogsPartialSuccess{
			RejectedLogRecords: rejected,
			ErrorMessage:       "ingest channel full",
		}
	}
	return resp, nil
}

// Stop gracefully shuts down the gRPC server. Safe to call more than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		if s.grpcServer != nil {
			s.grpcServer.GracefulStop()
		}
		s.wg.Wait()
		close(s.lineChan)
	})
	return nil
}

// Lines returns the channel of received log lines.
func (s *Server) Lines() <-chan model.IngestEnvelope {
	return s.lineChan
}

// Addr returns the active listen address.
// Before Start, it returns the configured address.
func (s *Server) Addr() string {
	return s.addr
}
