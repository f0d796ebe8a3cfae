package duckdb

import (
	"strings"
	"testing"
	"time"

	"github.com/circue/gwlog/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore(\"\") failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func insertTestRecords(t *testing.T, store *Store, records []*MessageRecord) {
	t.Helper()
	if err := store.InsertMessageBatch(records); err != nil {
		t.Fatalf("InsertMessageBatch failed: %v", err)
	}
}

// testRecord builds a record for the given channel with a valid server time.
func testRecord(protocol, clientIP string, clientPort uint32, payload []byte) *MessageRecord {
	return &MessageRecord{
		Envelope: model.Envelope{
			Channel: model.ChannelInfo{
				ClientIP:   clientIP,
				ClientPort: clientPort,
				ServerIP:   "198.18.0.1",
				ServerPort: 8883,
				Protocol:   protocol,
			},
			MessageType: protocol,
			Message:     payload,
			ServerTime:  time.Now().UnixMilli(),
		},
		ServerTimeValid: true,
		RawLine:         "test line",
		Source:          "tcp",
		ReceivedAt:      time.Now(),
	}
}

func TestInsertMessageBatch(t *testing.T) {
	store := newTestStore(t)

	records := []*MessageRecord{
		testRecord("mqtt", "172.19.0.11", 0, []byte(`{"temp":21}`)),
		testRecord("iec104", "10.0.0.5", 2404, []byte{0x68, 0x04}),
		testRecord("mqtt", "172.19.0.12", 0, []byte("hello")),
	}

	insertTestRecords(t, store, records)

	count, err := store.TotalMessageCount(QueryOpts{})
	if err != nil {
		t.Fatalf("TotalMessageCount: %v", err)
	}
	if count != 3 {
		t.Errorf("TotalMessageCount = %d, want 3", count)
	}

	// Event IDs are assigned on insert when missing.
	recent, err := store.RecentMessages(10, "", "")
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	for _, r := range recent {
		if r.EventID == "" {
			t.Error("RecentMessages returned record with empty event_id")
		}
	}
}

func TestTotalMessageCount_Empty(t *testing.T) {
	store := newTestStore(t)

	count, err := store.TotalMessageCount(QueryOpts{})
	if err != nil {
		t.Fatalf("TotalMessageCount: %v", err)
	}
	if count != 0 {
		t.Errorf("empty store TotalMessageCount = %d, want 0", count)
	}
}

func TestTotalPayloadBytes(t *testing.T) {
	store := newTestStore(t)

	records := []*MessageRecord{
		testRecord("mqtt", "172.19.0.11", 0, []byte("abcd")),    // 4 bytes
		testRecord("iec104", "10.0.0.5", 2404, []byte{1, 2, 3}), // 3 bytes
	}
	insertTestRecords(t, store, records)

	total, err := store.TotalPayloadBytes(QueryOpts{})
	if err != nil {
		t.Fatalf("TotalPayloadBytes: %v", err)
	}
	if total != 7 {
		t.Errorf("TotalPayloadBytes = %d, want 7", total)
	}

	total, err = store.TotalPayloadBytes(QueryOpts{Protocol: "mqtt"})
	if err != nil {
		t.Fatalf("TotalPayloadBytes(mqtt): %v", err)
	}
	if total != 4 {
		t.Errorf("TotalPayloadBytes(mqtt) = %d, want 4", total)
	}
}

func TestProtocolCounts(t *testing.T) {
	store := newTestStore(t)

	records := []*MessageRecord{
		testRecord("mqtt", "172.19.0.11", 0, []byte("a")),
		testRecord("mqtt", "172.19.0.12", 0, []byte("b")),
		testRecord("iec104", "10.0.0.5", 2404, []byte{0x68}),
	}
	insertTestRecords(t, store, records)

	counts, err := store.ProtocolCounts()
	if err != nil {
		t.Fatalf("ProtocolCounts: %v", err)
	}

	got := map[string]int64{}
	for _, pc := range counts {
		got[pc.Protocol] = pc.Count
	}
	if got["mqtt"] != 2 {
		t.Errorf("mqtt count = %d, want 2", got["mqtt"])
	}
	if got["iec104"] != 1 {
		t.Errorf("iec104 count = %d, want 1", got["iec104"])
	}
}

func TestTopClients(t *testing.T) {
	store := newTestStore(t)

	records := []*MessageRecord{
		testRecord("mqtt", "172.19.0.11", 0, []byte("a")),
		testRecord("mqtt", "172.19.0.11", 0, []byte("b")),
		testRecord("iec104", "10.0.0.5", 2404, []byte{0x68}),
	}
	insertTestRecords(t, store, records)

	clients, err := store.TopClients(5, QueryOpts{})
	if err != nil {
		t.Fatalf("TopClients: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("TopClients returned %d endpoints, want 2", len(clients))
	}
	if clients[0].Host != "172.19.0.11" || clients[0].Count != 2 {
		t.Errorf("top client = %s:%d count %d, want 172.19.0.11 count 2",
			clients[0].Host, clients[0].Port, clients[0].Count)
	}

	// Protocol-scoped query excludes the other protocol's endpoints.
	clients, err = store.TopClients(5, QueryOpts{Protocol: "iec104"})
	if err != nil {
		t.Fatalf("TopClients(iec104): %v", err)
	}
	if len(clients) != 1 || clients[0].Host != "10.0.0.5" {
		t.Errorf("TopClients(iec104) = %v, want only 10.0.0.5", clients)
	}
}

func TestTopServers(t *testing.T) {
	store := newTestStore(t)

	records := []*MessageRecord{
		testRecord("mqtt", "172.19.0.11", 0, []byte("a")),
		testRecord("mqtt", "172.19.0.12", 0, []byte("b")),
	}
	insertTestRecords(t, store, records)

	servers, err := store.TopServers(5, QueryOpts{})
	if err != nil {
		t.Fatalf("TopServers: %v", err)
	}
	if len(servers) != 1 {
		t.Fatalf("TopServers returned %d endpoints, want 1", len(servers))
	}
	if servers[0].Host != "198.18.0.1" || servers[0].Port != 8883 || servers[0].Count != 2 {
		t.Errorf("top server = %s:%d count %d, want 198.18.0.1:8883 count 2",
			servers[0].Host, servers[0].Port, servers[0].Count)
	}
}

func TestListProtocols(t *testing.T) {
	store := newTestStore(t)

	protocols, err := store.ListProtocols()
	if err != nil {
		t.Fatalf("ListProtocols: %v", err)
	}
	if len(protocols) != 0 {
		t.Errorf("ListProtocols on empty store returned %d, want 0", len(protocols))
	}

	records := []*MessageRecord{
		testRecord("mqtt", "172.19.0.11", 0, []byte("a")),
		testRecord("iec104", "10.0.0.5", 2404, []byte{0x68}),
		testRecord("mqtt", "172.19.0.12", 0, []byte("b")),
	}
	insertTestRecords(t, store, records)

	protocols, err = store.ListProtocols()
	if err != nil {
		t.Fatalf("ListProtocols: %v", err)
	}
	// Sorted: iec104, mqtt
	expected := []string{"iec104", "mqtt"}
	if len(protocols) != len(expected) {
		t.Fatalf("ListProtocols returned %d protocols, want %d; got %v", len(protocols), len(expected), protocols)
	}
	for i, want := range expected {
		if protocols[i] != want {
			t.Errorf("protocols[%d] = %q, want %q", i, protocols[i], want)
		}
	}
}

func TestRecentMessages_Filters(t *testing.T) {
	store := newTestStore(t)

	records := []*MessageRecord{
		testRecord("mqtt", "172.19.0.11", 0, []byte("a")),
		testRecord("iec104", "10.0.0.5", 2404, []byte{0x68, 0x04}),
		testRecord("mqtt", "172.19.0.12", 0, []byte("c")),
	}
	insertTestRecords(t, store, records)

	got, err := store.RecentMessages(10, "mqtt", "")
	if err != nil {
		t.Fatalf("RecentMessages(mqtt): %v", err)
	}
	if len(got) != 2 {
		t.Errorf("RecentMessages(mqtt) returned %d records, want 2", len(got))
	}

	got, err = store.RecentMessages(10, "", "10.0.0.5")
	if err != nil {
		t.Fatalf("RecentMessages(client): %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("RecentMessages(client) returned %d records, want 1", len(got))
	}
	r := got[0]
	if r.Envelope.Channel.Protocol != "iec104" {
		t.Errorf("protocol = %q, want iec104", r.Envelope.Channel.Protocol)
	}
	if string(r.Envelope.Message) != string([]byte{0x68, 0x04}) {
		t.Errorf("payload = %x, want 6804", r.Envelope.Message)
	}
	if !r.ServerTimeValid {
		t.Error("ServerTimeValid = false, want true")
	}
	if r.RawLine != "test line" || r.Source != "tcp" {
		t.Errorf("raw_line=%q source=%q, want test line/tcp", r.RawLine, r.Source)
	}
}

func TestRecentMessages_ChronologicalOrder(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().Add(-time.Minute)
	var records []*MessageRecord
	for i := 0; i < 5; i++ {
		r := testRecord("mqtt", "172.19.0.11", 0, []byte("x"))
		r.ReceivedAt = base.Add(time.Duration(i) * time.Second)
		records = append(records, r)
	}
	insertTestRecords(t, store, records)

	got, err := store.RecentMessages(3, "", "")
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("RecentMessages returned %d records, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].ReceivedAt.Before(got[i-1].ReceivedAt) {
			t.Errorf("records not in ascending order at index %d", i)
		}
	}
}

func TestMessageCountsByMinute(t *testing.T) {
	store := newTestStore(t)

	records := []*MessageRecord{
		testRecord("mqtt", "172.19.0.11", 0, []byte("a")),
		testRecord("mqtt", "172.19.0.11", 0, []byte("b")),
		testRecord("iec104", "10.0.0.5", 2404, []byte{0x68}),
	}
	insertTestRecords(t, store, records)

	counts, err := store.MessageCountsByMinute(QueryOpts{})
	if err != nil {
		t.Fatalf("MessageCountsByMinute: %v", err)
	}
	if len(counts) == 0 {
		t.Fatal("MessageCountsByMinute returned no rows")
	}

	var mqtt, iec, total int64
	for _, mc := range counts {
		mqtt += mc.MQTT
		iec += mc.IEC104
		total += mc.Total
	}
	if mqtt != 2 || iec != 1 || total != 3 {
		t.Errorf("counts mqtt=%d iec104=%d total=%d, want 2/1/3", mqtt, iec, total)
	}
}

func TestDeleteBefore(t *testing.T) {
	store := newTestStore(t)

	old := testRecord("mqtt", "172.19.0.11", 0, []byte("old"))
	old.ReceivedAt = time.Now().Add(-48 * time.Hour)
	fresh := testRecord("mqtt", "172.19.0.11", 0, []byte("fresh"))

	insertTestRecords(t, store, []*MessageRecord{old, fresh})

	deleted, err := store.DeleteBefore(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteBefore deleted %d rows, want 1", deleted)
	}

	count, err := store.TotalMessageCount(QueryOpts{})
	if err != nil {
		t.Fatalf("TotalMessageCount: %v", err)
	}
	if count != 1 {
		t.Errorf("after DeleteBefore, TotalMessageCount = %d, want 1", count)
	}
}

func TestExecuteQuery_SelectAllowed(t *testing.T) {
	store := newTestStore(t)

	insertTestRecords(t, store, []*MessageRecord{
		testRecord("mqtt", "172.19.0.11", 0, []byte("a")),
	})

	results, err := store.ExecuteQuery("SELECT COUNT(*) as cnt FROM messages")
	if err != nil {
		t.Fatalf("ExecuteQuery SELECT: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("ExecuteQuery returned %d rows, want 1", len(results))
	}
}

func TestExecuteQuery_WithAllowed(t *testing.T) {
	store := newTestStore(t)

	insertTestRecords(t, store, []*MessageRecord{
		testRecord("mqtt", "172.19.0.11", 0, []byte("a")),
	})

	results, err := store.ExecuteQuery("WITH c AS (SELECT COUNT(*) AS cnt FROM messages) SELECT cnt FROM c")
	if err != nil {
		t.Fatalf("ExecuteQuery WITH: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("ExecuteQuery WITH returned %d rows, want 1", len(results))
	}
}

func TestExecuteQuery_DMLRejected(t *testing.T) {
	store := newTestStore(t)

	rejected := []string{
		"INSERT INTO messages (protocol) VALUES ('mqtt')",
		"UPDATE messages SET protocol = 'hacked'",
		"DELETE FROM messages",
		"DROP TABLE messages",
		"CREATE TABLE evil (id int)",
		"ALTER TABLE messages ADD COLUMN evil varchar",
		"TRUNCATE messages",
	}

	for _, sql := range rejected {
		_, err := store.ExecuteQuery(sql)
		if err == nil {
			t.Errorf("ExecuteQuery(%q) should have been rejected", sql)
		}
	}
}

func TestExecuteQuery_DuckDBKeywordsRejected(t *testing.T) {
	store := newTestStore(t)

	// Keyword rejection without semicolons (keyword denylist).
	rejected := []struct {
		sql     string
		keyword string
	}{
		{"SELECT COPY(messages, '/tmp/dump.csv') FROM messages", "COPY"},
		{"SELECT ATTACH FROM messages", "ATTACH"},
		{"SELECT LOAD FROM messages", "LOAD"},
		{"SELECT EXPORT FROM messages", "EXPORT"},
		{"SELECT IMPORT FROM messages", "IMPORT"},
		{"SELECT INSTALL FROM messages", "INSTALL"},
		{"SELECT CALL FROM messages", "CALL"},
		{"SELECT EXECUTE FROM messages", "EXECUTE"},
		{"SELECT PRAGMA FROM messages", "PRAGMA"},
		{"SELECT SET FROM messages", "SET"},
	}

	for _, tt := range rejected {
		_, err := store.ExecuteQuery(tt.sql)
		if err == nil {
			t.Errorf("ExecuteQuery should reject %s keyword", tt.keyword)
		}
		if err != nil && !strings.Contains(err.Error(), tt.keyword) {
			t.Errorf("ExecuteQuery error %q should mention keyword %s", err.Error(), tt.keyword)
		}
	}

	// Semicolon rejection (prevents statement chaining).
	semicolonCases := []string{
		"SELECT * FROM messages; DROP TABLE messages",
		"SELECT * FROM messages; COPY messages TO '/tmp/dump.csv'",
	}
	for _, sql := range semicolonCases {
		_, err := store.ExecuteQuery(sql)
		if err == nil {
			t.Errorf("ExecuteQuery should reject query with semicolons: %s", sql)
		}
		if err != nil && !strings.Contains(err.Error(), "semicolons") {
			t.Errorf("ExecuteQuery error %q should mention semicolons", err.Error())
		}
	}
}

func TestTableRowCounts(t *testing.T) {
	store := newTestStore(t)

	counts, err := store.TableRowCounts()
	if err != nil {
		t.Fatalf("TableRowCounts: %v", err)
	}

	for _, table := range []string{"messages"} {
		if _, ok := counts[table]; !ok {
			t.Errorf("TableRowCounts missing table %q", table)
		}
	}
}
