package socketrpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/circue/gwlog/internal/model"
)

// Client implements model.MessageQuerier over a Unix domain socket using JSON-RPC 2.0.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	return &Client{
		conn:    conn,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs a JSON-RPC call and unmarshals the result into dest.
func (c *Client) call(method string, params interface{}, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	paramsData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	c.conn.SetDeadline(time.Now().Add(30 * time.Second))
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}

	if resp.Error != nil {
		return resp.Error
	}

	if dest != nil {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

func (c *Client) TotalMessageCount(opts model.QueryOpts) (int64, error) {
	var result int64
	err := c.call("TotalMessageCount", map[string]interface{}{"Opts": opts}, &result)
	return result, err
}

func (c *Client) TotalPayloadBytes(opts model.QueryOpts) (int64, error) {
	var result int64
	err := c.call("TotalPayloadBytes", map[string]interface{}{"Opts": opts}, &result)
	return result, err
}

func (c *Client) ProtocolCounts() ([]model.ProtocolCount, error) {
	var result []model.ProtocolCount
	err := c.call("ProtocolCounts", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) MessageCountsByMinute(opts model.QueryOpts) ([]model.MinuteCounts, error) {
	var result []model.MinuteCounts
	err := c.call("MessageCountsByMinute", map[string]interface{}{"Opts": opts}, &result)
	return result, err
}

func (c *Client) TopClients(limit int, opts model.QueryOpts) ([]model.EndpointCount, error) {
	var result []model.EndpointCount
	err := c.call("TopClients", map[string]interface{}{"Limit": limit, "Opts": opts}, &result)
	return result, err
}

func (c *Client) TopServers(limit int, opts model.QueryOpts) ([]model.EndpointCount, error) {
	var result []model.EndpointCount
	err := c.call("TopServers", map[string]interface{}{"Limit": limit, "Opts": opts}, &result)
	return result, err
}

func (c *Client) ListProtocols() ([]string, error) {
	var result []string
	err := c.call("ListProtocols", map[string]interface{}{}, &result)
	return result, err
}

func (c *Client) RecentMessages(limit int, protocol string, clientIP string) ([]model.MessageRecord, error) {
	var result []model.MessageRecord
	err := c.call("RecentMessages", map[string]interface{}{
		"Limit":    limit,
		"Protocol": protocol,
		"ClientIP": clientIP,
	}, &result)
	return result, err
}
