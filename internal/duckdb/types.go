package duckdb

import "github.com/circue/gwlog/internal/model"

// Type aliases re-export model types so duckdb.Store method signatures stay
// readable without importing model at every call site.
type MessageRecord = model.MessageRecord
type ProtocolCount = model.ProtocolCount
type EndpointCount = model.EndpointCount
type MinuteCounts = model.MinuteCounts
