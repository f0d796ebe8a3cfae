package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes model.MessageQuerier over a Unix domain
// socket. Each method maps 1:1 to the MessageQuerier interface.
//
//   Method                  Params                                         Result
//   ---------------------   --------------------------------------------   -----------------
//   TotalMessageCount       {Opts: QueryOpts}                              int64
//   TotalPayloadBytes       {Opts: QueryOpts}                              int64
//   ProtocolCounts          (none)                                         []ProtocolCount
//   MessageCountsByMinute   {Opts: QueryOpts}                              []MinuteCounts
//   TopClients              {Limit: int, Opts: QueryOpts}                  []EndpointCount
//   TopServers              {Limit: int, Opts: QueryOpts}                  []EndpointCount
//   ListProtocols           (none)                                         []string
//   RecentMessages          {Limit: int, Protocol: string, ClientIP: string}  []MessageRecord
//
// QueryOpts: {Protocol: string}, empty string means all protocols.
// Methods with optional params (TotalMessageCount, TotalPayloadBytes,
// MessageCountsByMinute, RecentMessages) accept empty or null params
// gracefully.
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error (query failure)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/gwlog/gwlog.sock, falling back to
// ~/.local/state/gwlog/gwlog.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "gwlog", "gwlog.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/gwlog.sock"
	}
	return filepath.Join(home, ".local", "state", "gwlog", "gwlog.sock")
}
