package model

// QueryOpts holds optional filters applied to most queries.
type QueryOpts struct {
	Protocol string // empty = all protocols
}

// MessageQuerier provides read-only queries on stored gateway messages.
type MessageQuerier interface {
	TotalMessageCount(opts QueryOpts) (int64, error)
	TotalPayloadBytes(opts QueryOpts) (int64, error)
	ProtocolCounts() ([]ProtocolCount, error)
	MessageCountsByMinute(opts QueryOpts) ([]MinuteCounts, error)
	TopClients(limit int, opts QueryOpts) ([]EndpointCount, error)
	TopServers(limit int, opts QueryOpts) ([]EndpointCount, error)
	ListProtocols() ([]string, error)
	RecentMessages(limit int, protocol string, clientIP string) ([]MessageRecord, error)
}

// SchemaQuerier provides schema introspection and arbitrary read-only queries.
type SchemaQuerier interface {
	ExecuteQuery(query string) ([]map[string]interface{}, error)
	GetSchemaDescription() string
	TableRowCounts() (map[string]int64, error)
}

// MessageWriter provides append-oriented write operations for parsed messages.
type MessageWriter interface {
	InsertMessageBatch(records []*MessageRecord) error
}

// MessageReader provides the unified read-side query contract.
type MessageReader interface {
	MessageQuerier
	SchemaQuerier
}

// ReadAPI is the unified read contract for read surfaces (HTTP and socket RPC).
type ReadAPI interface {
	MessageReader
}
