package socketrpc_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/circue/gwlog/internal/model"
	"github.com/circue/gwlog/internal/socketrpc"
)

// mockQuerier is a minimal MessageQuerier for roundtrip testing.
type mockQuerier struct{}

func (m *mockQuerier) TotalMessageCount(opts model.QueryOpts) (int64, error) { return 42, nil }
func (m *mockQuerier) TotalPayloadBytes(opts model.QueryOpts) (int64, error) { return 1024, nil }
func (m *mockQuerier) ProtocolCounts() ([]model.ProtocolCount, error) {
	return []model.ProtocolCount{{Protocol: "mqtt", Count: 30}, {Protocol: "iec104", Count: 12}}, nil
}
func (m *mockQuerier) MessageCountsByMinute(opts model.QueryOpts) ([]model.MinuteCounts, error) {
	return []model.MinuteCounts{{Minute: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), IEC104: 5, Total: 5}}, nil
}
func (m *mockQuerier) TopClients(limit int, opts model.QueryOpts) ([]model.EndpointCount, error) {
	return []model.EndpointCount{{Host: "172.19.0.11", Port: 0, Count: 20}}, nil
}
func (m *mockQuerier) TopServers(limit int, opts model.QueryOpts) ([]model.EndpointCount, error) {
	return []model.EndpointCount{{Host: "198.18.0.1", Port: 8883, Count: 15}}, nil
}
func (m *mockQuerier) ListProtocols() ([]string, error) {
	return []string{"iec104", "mqtt"}, nil
}
func (m *mockQuerier) RecentMessages(limit int, protocol string, clientIP string) ([]model.MessageRecord, error) {
	return []model.MessageRecord{{
		EventID: "e1",
		Envelope: model.Envelope{
			Channel: model.ChannelInfo{
				ClientIP: "10.0.0.5", ClientPort: 2404, ServerIP: "10.0.0.1", ServerPort: 2404, Protocol: "iec104",
			},
			MessageType: "iec104",
			Message:     []byte{0x68, 0x04},
			ServerTime:  1714838421525,
		},
		ServerTimeValid: true,
		RawLine:         "test message",
		Source:          "tcp",
		ReceivedAt:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}}, nil
}

func startTestServer(t *testing.T) (string, *socketrpc.Server) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "test.sock")
	srv := socketrpc.NewServer(sockPath, &mockQuerier{})
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	return sockPath, srv
}

func TestRoundtrip(t *testing.T) {
	sockPath, srv := startTestServer(t)
	defer srv.Stop()

	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	opts := model.QueryOpts{}

	t.Run("TotalMessageCount", func(t *testing.T) {
		count, err := client.TotalMessageCount(opts)
		if err != nil {
			t.Fatal(err)
		}
		if count != 42 {
			t.Fatalf("got %d, want 42", count)
		}
	})

	t.Run("TotalPayloadBytes", func(t *testing.T) {
		bytes, err := client.TotalPayloadBytes(opts)
		if err != nil {
			t.Fatal(err)
		}
		if bytes != 1024 {
			t.Fatalf("got %d, want 1024", bytes)
		}
	})

	t.Run("ProtocolCounts", func(t *testing.T) {
		counts, err := client.ProtocolCounts()
		if err != nil {
			t.Fatal(err)
		}
		if len(counts) != 2 || counts[0].Protocol != "mqtt" || counts[0].Count != 30 {
			t.Fatalf("unexpected counts: %v", counts)
		}
	})

	t.Run("MessageCountsByMinute", func(t *testing.T) {
		minutes, err := client.MessageCountsByMinute(opts)
		if err != nil {
			t.Fatal(err)
		}
		if len(minutes) != 1 || minutes[0].IEC104 != 5 {
			t.Fatalf("unexpected minutes: %v", minutes)
		}
	})

	t.Run("TopClients", func(t *testing.T) {
		clients, err := client.TopClients(10, opts)
		if err != nil {
			t.Fatal(err)
		}
		if len(clients) != 1 || clients[0].Host != "172.19.0.11" {
			t.Fatalf("unexpected clients: %v", clients)
		}
	})

	t.Run("TopServers", func(t *testing.T) {
		servers, err := client.TopServers(10, opts)
		if err != nil {
			t.Fatal(err)
		}
		if len(servers) != 1 || servers[0].Port != 8883 {
			t.Fatalf("unexpected servers: %v", servers)
		}
	})

	t.Run("ListProtocols", func(t *testing.T) {
		protocols, err := client.ListProtocols()
		if err != nil {
			t.Fatal(err)
		}
		if len(protocols) != 2 || protocols[0] != "iec104" {
			t.Fatalf("unexpected protocols: %v", protocols)
		}
	})

	t.Run("RecentMessages", func(t *testing.T) {
		messages, err := client.RecentMessages(100, "", "")
		if err != nil {
			t.Fatal(err)
		}
		if len(messages) != 1 || messages[0].RawLine != "test message" {
			t.Fatalf("unexpected messages: %v", messages)
		}
		if messages[0].Envelope.Channel.Protocol != "iec104" {
			t.Fatalf("unexpected protocol: %v", messages[0].Envelope.Channel.Protocol)
		}
	})
}

func TestDialFailure(t *testing.T) {
	_, err := socketrpc.Dial(filepath.Join(t.TempDir(), "nonexistent.sock"))
	if err == nil {
		t.Fatal("expected error dialing nonexistent socket")
	}
}

func TestServerStopCleansSocket(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "cleanup.sock")
	srv := socketrpc.NewServer(sockPath, &mockQuerier{})
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	srv.Stop()

	// Socket file should be removed.
	if _, err := socketrpc.Dial(sockPath); err == nil {
		t.Fatal("expected dial to fail after server stop")
	}
}

func TestStopIdempotent(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "idempotent.sock")
	srv := socketrpc.NewServer(sockPath, &mockQuerier{})
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	srv.Stop()
	srv.Stop()
}

func TestStopClosesConns(t *testing.T) {
	sockPath, srv := startTestServer(t)
	client, err := socketrpc.Dial(sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	srv.Stop()

	done := make(chan error, 1)
	go func() {
		_, callErr := client.ListProtocols()
		done <- callErr
	}()

	select {
	case callErr := <-done:
		if callErr == nil {
			t.Fatal("expected client call to fail after server stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client call hung after server stop")
	}
}
