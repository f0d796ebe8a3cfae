package gwparse

import "encoding/hex"

// payload recognizes the one-letter payload prefix ("D:" or "R:") and returns
// the raw remainder of the line. The two codes are emitted by different
// gateway firmware revisions and carry identical semantics here.
func payload(s *scanner) (string, error) {
	if err := s.literal(StagePayload, "D:"); err != nil {
		if err := s.literal(StagePayload, "R:"); err != nil {
			return "", s.errf(StagePayload, `expected "D:" or "R:"`)
		}
	}
	return s.lineRemainder(), nil
}

// DecodePayload decodes a raw payload body according to the classified
// protocol: IEC 104 payloads are hex-encoded binary frames, MQTT payloads are
// raw text (expected to be JSON, not validated) kept verbatim as bytes.
func DecodePayload(protocol, body string) ([]byte, error) {
	if protocol == ProtocolIEC104 {
		return hex.DecodeString(body)
	}
	return []byte(body), nil
}
