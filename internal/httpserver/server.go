package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/circue/gwlog/internal/ingest"
	"github.com/circue/gwlog/internal/model"
)

const (
	defaultRecentLimit = 100
	maxRecentLimit     = 1000
	topEndpointLimit   = 10
)

// QueryStore is the narrow store contract required by the HTTP API.
type QueryStore interface {
	model.MessageQuerier
	model.SchemaQuerier
}

// StatsFunc reports the ingest pipeline's outcome counters for /api/stats.
type StatsFunc func() ingest.Stats

// Server provides an HTTP API for querying gateway message analytics.
type Server struct {
	addr      string
	store     QueryStore
	statsFn   StatsFunc
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// ServerConfig holds optional collaborators for the HTTP server.
type ServerConfig struct {
	Stats StatsFunc
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, store QueryStore, conf ...ServerConfig) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:   addr,
		store:  store,
		ctx:    ctx,
		cancel: cancel,
	}
	if len(conf) > 0 {
		s.statsFn = conf[0].Stats
	}
	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/stats", s.handleStats)
	r.GET("/api/messages/recent", s.handleRecentMessages)
	r.GET("/api/schema", s.handleSchema)
	r.POST("/api/query", s.handleQuery)

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Addr returns the bound listen address, useful when started with port 0.
func (s *Server) Addr() string {
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	messageCount, err := s.store.TotalMessageCount(model.QueryOpts{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptime":        time.Since(s.startTime).String(),
		"message_count": messageCount,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	opts := model.QueryOpts{Protocol: c.Query("protocol")}

	total, err := s.store.TotalMessageCount(opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read message count"})
		return
	}
	payloadBytes, err := s.store.TotalPayloadBytes(opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read payload totals"})
		return
	}
	protocols, err := s.store.ProtocolCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read protocol counts"})
		return
	}
	byMinute, err := s.store.MessageCountsByMinute(opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read per-minute counts"})
		return
	}
	topClients, err := s.store.TopClients(topEndpointLimit, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read top clients"})
		return
	}
	topServers, err := s.store.TopServers(topEndpointLimit, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read top servers"})
		return
	}

	resp := gin.H{
		"total_messages":      total,
		"total_payload_bytes": payloadBytes,
		"protocols":           protocols,
		"by_minute":           byMinute,
		"top_clients":         topClients,
		"top_servers":         topServers,
	}
	if s.statsFn != nil {
		resp["ingest"] = s.statsFn()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRecentMessages(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	messages, err := s.store.RecentMessages(limit, c.Query("protocol"), c.Query("client_ip"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read recent messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}

func (s *Server) handleSchema(c *gin.Context) {
	description := s.store.GetSchemaDescription()

	tables, err := s.store.ExecuteQuery(
		"SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' ORDER BY table_name, ordinal_position",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read schema metadata"})
		return
	}

	schema := make(map[string][]map[string]string)
	for _, row := range tables {
		tableName := fmt.Sprintf("%v", row["table_name"])
		schema[tableName] = append(schema[tableName], map[string]string{
			"column": fmt.Sprintf("%v", row["column_name"]),
			"type":   fmt.Sprintf("%v", row["data_type"]),
		})
	}

	counts, err := s.store.TableRowCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read table row counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"description": description,
		"tables":      schema,
		"row_counts":  counts,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req struct {
		SQL string `json:"sql" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing sql field"})
		return
	}

	results, err := s.store.ExecuteQuery(req.SQL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var columns []string
	if len(results) > 0 {
		for col := range results[0] {
			columns = append(columns, col)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"columns":   columns,
		"rows":      results,
		"row_count": len(results),
	})
}
