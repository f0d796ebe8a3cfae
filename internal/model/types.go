package model

import "time"

// ChannelInfo is the 4-tuple network descriptor plus protocol tag describing
// the communication session a log line refers to.
type ChannelInfo struct {
	ClientIP   string `json:"client_ip"`
	ClientPort uint32 `json:"client_port"`
	ServerIP   string `json:"server_ip"`
	ServerPort uint32 `json:"server_port"`
	Protocol   string `json:"protocol"`
}

// Envelope is the structured message produced from one gateway log line.
// It is immutable after construction; ownership passes to the caller.
// ServerTime is epoch milliseconds; 0 is the sentinel for a timestamp that
// could not be converted (the surrounding record tracks validity).
type Envelope struct {
	Channel     ChannelInfo `json:"channel"`
	MessageType string      `json:"message_type"`
	Message     []byte      `json:"message"`
	ServerTime  int64       `json:"server_time"`
}

// NewEnvelope builds an Envelope directly from already-known fields, bypassing
// the text grammar. Callers that hold structured data use this instead of the
// line parser.
func NewEnvelope(
	serverTime int64,
	clientIP string,
	clientPort uint32,
	serverIP string,
	serverPort uint32,
	protocol string,
	message []byte,
	messageType string,
) *Envelope {
	return &Envelope{
		Channel: ChannelInfo{
			ClientIP:   clientIP,
			ClientPort: clientPort,
			ServerIP:   serverIP,
			ServerPort: serverPort,
			Protocol:   protocol,
		},
		MessageType: messageType,
		Message:     message,
		ServerTime:  serverTime,
	}
}

// MessageRecord couples an Envelope with ingest metadata. It is the canonical
// unit for storage, journaling, and the read surfaces.
type MessageRecord struct {
	EventID         string    `json:"event_id"`
	Envelope        Envelope  `json:"envelope"`
	ServerTimeValid bool      `json:"server_time_valid"`
	RawLine         string    `json:"raw_line"`
	Source          string    `json:"source"` // "tcp", "stdin", "grpc"
	ReceivedAt      time.Time `json:"received_at"`
}

// ProtocolCount represents message counts grouped by protocol tag.
type ProtocolCount struct {
	Protocol string
	Count    int64
}

// EndpointCount represents message counts grouped by one channel endpoint.
type EndpointCount struct {
	Host  string
	Port  uint32
	Count int64
}

// MinuteCounts represents per-protocol message counts for one minute.
type MinuteCounts struct {
	Minute time.Time
	MQTT   int64
	IEC104 int64
	Total  int64
}
