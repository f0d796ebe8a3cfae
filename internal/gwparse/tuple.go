package gwparse

import "strconv"

// AddressPort is one side of a gateway channel. Host is an opaque string
// (IPv4, hostname, or gateway station ID) and is not validated.
type AddressPort struct {
	Host string
	Port uint32
}

// NetworkInfo is the parsed 4-tuple network descriptor of a log line.
// Protocol is always populated; it is fully determined by Client.Port.
type NetworkInfo struct {
	Client   AddressPort
	Server   AddressPort
	Protocol string
}

// ParseNetworkTuple recognizes "[host:port#host:port]" at the start of input
// and returns the descriptor plus the unconsumed remainder.
//
// Known grammar limitation: the host token runs up to the first ':' in the
// remaining input, so a host that itself contains a colon (e.g. a bracketless
// IPv6 literal) is mis-split. The gateway never emits such hosts today.
func ParseNetworkTuple(input string) (NetworkInfo, string, error) {
	s := newScanner(input)
	info, err := parseTuple(s)
	if err != nil {
		return NetworkInfo{}, input, err
	}
	return info, s.rest(), nil
}

func parseTuple(s *scanner) (NetworkInfo, error) {
	if err := s.literal(StageTuple, "["); err != nil {
		return NetworkInfo{}, err
	}
	client, err := parseAddressPort(s)
	if err != nil {
		return NetworkInfo{}, err
	}
	if err := s.literal(StageTuple, "#"); err != nil {
		return NetworkInfo{}, err
	}
	server, err := parseAddressPort(s)
	if err != nil {
		return NetworkInfo{}, err
	}
	if err := s.literal(StageTuple, "]"); err != nil {
		return NetworkInfo{}, err
	}

	return NetworkInfo{
		Client:   client,
		Server:   server,
		Protocol: Protocol(client.Port),
	}, nil
}

func parseAddressPort(s *scanner) (AddressPort, error) {
	host, err := s.until(StageTuple, ':')
	if err != nil {
		return AddressPort{}, err
	}
	if err := s.literal(StageTuple, ":"); err != nil {
		return AddressPort{}, err
	}
	portStart := s.pos
	digits, err := s.digits(StageTuple)
	if err != nil {
		return AddressPort{}, err
	}
	port, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return AddressPort{}, &ParseError{
			Stage: StageTuple,
			Pos:   portStart,
			Msg:   "port " + digits,
			Err:   ErrPortOutOfRange,
		}
	}
	return AddressPort{Host: host, Port: uint32(port)}, nil
}
