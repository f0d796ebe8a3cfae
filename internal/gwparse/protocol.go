package gwparse

// Wire protocols the gateway multiplexes into one log stream.
const (
	ProtocolMQTT   = "mqtt"
	ProtocolIEC104 = "iec104"
)

// Protocol classifies a channel by its client port. Port 0 is the gateway's
// reserved MQTT bridge port; every other port carries IEC 104 polling traffic.
// This is the single protocol-detection rule in the system; both the tuple
// parser and the line assembler derive their tag through this function.
func Protocol(clientPort uint32) string {
	if clientPort == 0 {
		return ProtocolMQTT
	}
	return ProtocolIEC104
}
