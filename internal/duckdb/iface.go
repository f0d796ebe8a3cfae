package duckdb

import "github.com/circue/gwlog/internal/model"

// Type aliases re-export model interfaces so consumers that import duckdb
// for these continue to compile.
type QueryOpts = model.QueryOpts
type MessageQuerier = model.MessageQuerier
type SchemaQuerier = model.SchemaQuerier
type MessageWriter = model.MessageWriter
type MessageReader = model.MessageReader
type ReadAPI = model.ReadAPI
