package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
)

// minuteCountsWindow bounds MessageCountsByMinute to the recent past.
const minuteCountsWindow = time.Hour

// dangerousKeywordPattern matches dangerous SQL keywords at word boundaries.
// This avoids false positives like "RESET" matching "SET".
// Used as defense-in-depth after comment stripping and semicolon rejection.
var dangerousKeywordPattern = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|COPY|ATTACH|LOAD|EXPORT|IMPORT|INSTALL|CALL|EXECUTE|PRAGMA|SET)\b`,
)

// blockCommentPattern matches C-style block comments (/* ... */).
var blockCommentPattern = regexp.MustCompile(`/\*[\s\S]*?\*/`)

// stripSQLComments removes -- line comments and /* */ block comments from a query.
func stripSQLComments(query string) string {
	// Remove block comments first.
	cleaned := blockCommentPattern.ReplaceAllString(query, " ")
	// Remove line comments (-- to end of line).
	var result strings.Builder
	for _, line := range strings.Split(cleaned, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		result.WriteString(line)
		result.WriteByte('\n')
	}
	return result.String()
}

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// protocolFilter returns a WHERE clause and args when opts.Protocol is non-empty.
func protocolFilter(opts QueryOpts) (clause string, args []interface{}) {
	if opts.Protocol != "" {
		return "WHERE protocol = ?", []interface{}{opts.Protocol}
	}
	return "", nil
}

// protocolAnd returns an "AND protocol = ?" fragment and args when
// opts.Protocol is non-empty. Use when there is already a WHERE clause.
func protocolAnd(opts QueryOpts) (clause string, args []interface{}) {
	if opts.Protocol != "" {
		return " AND protocol = ?", []interface{}{opts.Protocol}
	}
	return "", nil
}

// TotalMessageCount returns the total number of stored messages.
func (s *Store) TotalMessageCount(opts QueryOpts) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	where, wArgs := protocolFilter(opts)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM messages %s`, where)

	var count int64
	err := s.db.QueryRowContext(ctx, query, wArgs...).Scan(&count)
	return count, err
}

// TotalPayloadBytes returns the total decoded payload bytes persisted.
func (s *Store) TotalPayloadBytes(opts QueryOpts) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	where, wArgs := protocolFilter(opts)
	query := fmt.Sprintf(`SELECT COALESCE(SUM(payload_size), 0) FROM messages %s`, where)

	var total int64
	err := s.db.QueryRowContext(ctx, query, wArgs...).Scan(&total)
	return total, err
}

// ProtocolCounts returns message counts grouped by protocol tag.
func (s *Store) ProtocolCounts() ([]ProtocolCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT protocol, COUNT(*) as count FROM messages GROUP BY protocol ORDER BY count DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ProtocolCount
	for rows.Next() {
		var pc ProtocolCount
		if err := rows.Scan(&pc.Protocol, &pc.Count); err != nil {
			log.Printf("duckdb scan error (ProtocolCounts): %v", err)
			continue
		}
		results = append(results, pc)
	}
	return results, rows.Err()
}

// MessageCountsByMinute returns per-protocol message counts for the last hour.
func (s *Store) MessageCountsByMinute(opts QueryOpts) ([]MinuteCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	cutoff := time.Now().Add(-minuteCountsWindow)

	andProto, aArgs := protocolAnd(opts)
	query := fmt.Sprintf(`
		SELECT date_trunc('minute', received_at) as minute,
			SUM(CASE WHEN protocol='mqtt' THEN 1 ELSE 0 END) as mqtt,
			SUM(CASE WHEN protocol='iec104' THEN 1 ELSE 0 END) as iec104,
			COUNT(*) as total
		FROM messages
		WHERE received_at >= ?%s
		GROUP BY minute ORDER BY minute`, andProto)

	args := append([]interface{}{cutoff}, aArgs...)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MinuteCounts
	for rows.Next() {
		var mc MinuteCounts
		if err := rows.Scan(&mc.Minute, &mc.MQTT, &mc.IEC104, &mc.Total); err != nil {
			log.Printf("duckdb scan error (MessageCountsByMinute): %v", err)
			continue
		}
		results = append(results, mc)
	}
	return results, rows.Err()
}

// TopClients returns the client endpoints with the most messages.
func (s *Store) TopClients(limit int, opts QueryOpts) ([]EndpointCount, error) {
	return s.topEndpoints("client_ip", "client_port", limit, opts)
}

// TopServers returns the server endpoints with the most messages.
func (s *Store) TopServers(limit int, opts QueryOpts) ([]EndpointCount, error) {
	return s.topEndpoints("server_ip", "server_port", limit, opts)
}

// topEndpoints groups by one side of the channel tuple. Column names are
// hardcoded by the callers, never user input.
func (s *Store) topEndpoints(hostCol, portCol string, limit int, opts QueryOpts) ([]EndpointCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	where, wArgs := protocolFilter(opts)
	query := fmt.Sprintf(`
		SELECT %s, %s, COUNT(*) as count
		FROM messages %s
		GROUP BY %s, %s
		ORDER BY count DESC
		LIMIT ?`, hostCol, portCol, where, hostCol, portCol)

	args := append(wArgs, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []EndpointCount
	for rows.Next() {
		var ec EndpointCount
		if err := rows.Scan(&ec.Host, &ec.Port, &ec.Count); err != nil {
			log.Printf("duckdb scan error (topEndpoints): %v", err)
			continue
		}
		results = append(results, ec)
	}
	return results, rows.Err()
}

// ListProtocols returns the distinct protocol tags present in storage.
func (s *Store) ListProtocols() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT protocol FROM messages ORDER BY protocol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var protocols []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			log.Printf("duckdb scan error (ListProtocols): %v", err)
			continue
		}
		protocols = append(protocols, p)
	}
	return protocols, rows.Err()
}

// RecentMessages returns recent message records with optional filtering by
// protocol and client address.
func (s *Store) RecentMessages(limit int, protocol string, clientIP string) ([]MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var conditions []string
	var args []interface{}

	if protocol != "" {
		conditions = append(conditions, "protocol = ?")
		args = append(args, protocol)
	}
	if clientIP != "" {
		conditions = append(conditions, "client_ip = ?")
		args = append(args, clientIP)
	}

	innerQuery := `SELECT event_id, received_at, server_time, server_time_valid,
		client_ip, client_port, server_ip, server_port,
		protocol, message_type, payload, raw_line, source FROM messages`
	if len(conditions) > 0 {
		innerQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	innerQuery += " ORDER BY received_at DESC LIMIT ?"
	args = append(args, limit)

	// Wrap so final results come back in chronological (ASC) order.
	query := "SELECT * FROM (" + innerQuery + ") ORDER BY received_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MessageRecord
	for rows.Next() {
		var r MessageRecord
		var rawLine, source sql.NullString
		ch := &r.Envelope.Channel
		if err := rows.Scan(&r.EventID, &r.ReceivedAt, &r.Envelope.ServerTime, &r.ServerTimeValid,
			&ch.ClientIP, &ch.ClientPort, &ch.ServerIP, &ch.ServerPort,
			&ch.Protocol, &r.Envelope.MessageType, &r.Envelope.Message, &rawLine, &source); err != nil {
			log.Printf("duckdb scan error (RecentMessages): %v", err)
			continue
		}
		r.RawLine = rawLine.String
		r.Source = source.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// DeleteBefore removes messages received before cutoff and returns the number
// of rows deleted.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE received_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return rows, nil
}

// ExecuteQuery runs an arbitrary read-only query with guardrails: semicolons
// are rejected, comments stripped, and mutating keywords disallowed.
func (s *Store) ExecuteQuery(query string) ([]map[string]interface{}, error) {
	trimmed := strings.TrimSpace(query)

	// Reject semicolons to prevent statement chaining.
	if strings.Contains(trimmed, ";") {
		return nil, fmt.Errorf("query must not contain semicolons")
	}

	// Strip SQL comments so keywords hidden in comments are still caught.
	stripped := strings.TrimSpace(stripSQLComments(trimmed))
	upper := strings.ToUpper(stripped)

	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return nil, fmt.Errorf("only SELECT/WITH queries are allowed")
	}

	// Defense-in-depth: reject dangerous keywords after comment stripping.
	if match := dangerousKeywordPattern.FindString(stripped); match != "" {
		return nil, fmt.Errorf("query contains disallowed keyword: %s", strings.ToUpper(match))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	maxRows := 1000

	for rows.Next() && len(results) < maxRows {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			log.Printf("duckdb scan error (ExecuteQuery): %v", err)
			continue
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// GetSchemaDescription returns a human-readable schema description.
func (s *Store) GetSchemaDescription() string {
	return `Table 'messages': id (BIGINT), event_id (VARCHAR), received_at (TIMESTAMP), ` +
		`server_time (BIGINT epoch millis, 0 = unparseable), server_time_valid (BOOLEAN), ` +
		`client_ip (VARCHAR), client_port (UINTEGER), server_ip (VARCHAR), server_port (UINTEGER), ` +
		`protocol (VARCHAR: mqtt/iec104), message_type (VARCHAR), payload (BLOB), ` +
		`payload_size (INTEGER), raw_line (VARCHAR), source (VARCHAR: tcp/stdin/grpc).`
}

// TableRowCounts returns the row count for each known table using a hardcoded allowlist.
func (s *Store) TableRowCounts() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	allowedTables := []string{"messages"}
	counts := make(map[string]int64, len(allowedTables))

	for _, table := range allowedTables {
		var count int64
		// Table names are hardcoded constants, not user input.
		err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
		if err != nil {
			continue
		}
		counts[table] = count
	}
	return counts, nil
}
