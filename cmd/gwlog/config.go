package main

import (
	"time"
)

const (
	defaultBindHost            = "127.0.0.1"
	defaultTCPPort             = 4000
	defaultGRPCPort            = 4317
	defaultAPIPort             = 3000
	defaultMuxBufferSize       = DefaultMuxBuffer
	defaultQueryTimeout        = 30 * time.Second
	defaultMaxConcurrentReads  = 8
	defaultInsertBatchSize     = 2000
	defaultInsertFlushInterval = 100 * time.Millisecond
	defaultInsertFlushQueue    = 64
	defaultLogRetention        = 30 // days, 0 = disabled
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Host                 string        `mapstructure:"host"`
	TCPEnabled           bool          `mapstructure:"tcp-enabled"`
	TCPPort              int           `mapstructure:"tcp-port"`
	TCPAddr              string        `mapstructure:"tcp-addr"`
	GRPCEnabled          bool          `mapstructure:"grpc-enabled"`
	GRPCPort             int           `mapstructure:"grpc-port"`
	GRPCAddr             string        `mapstructure:"grpc-addr"`
	MuxBufferSize        int           `mapstructure:"mux-buffer-size"`
	SourceUTCOffsetHours int           `mapstructure:"source-utc-offset-hours"`
	DBPath               string        `mapstructure:"db-path"`
	APIEnabled           bool          `mapstructure:"api-enabled"`
	APIPort              int           `mapstructure:"api-port"`
	APIAddr              string        `mapstructure:"api-addr"`
	QueryTimeout         time.Duration `mapstructure:"query-timeout"`
	MaxConcurrentReads   int           `mapstructure:"max-concurrent-queries"`
	InsertBatchSize      int           `mapstructure:"insert-batch-size"`
	InsertFlushInterval  time.Duration `mapstructure:"insert-flush-interval"`
	InsertFlushQueue     int           `mapstructure:"insert-flush-queue-size"`
	SocketPath           string        `mapstructure:"socket-path"`
	LogRetention         int           `mapstructure:"log-retention"`
	JournalEnabled       bool          `mapstructure:"journal-enabled"`
	JournalPath          string        `mapstructure:"journal-path"`

	BackupEnabled        bool          `mapstructure:"backup-enabled"`
	BackupInterval       time.Duration `mapstructure:"backup-interval"`
	BackupLocalDir       string        `mapstructure:"backup-local-dir"`
	BackupKeepLast       int           `mapstructure:"backup-keep-last"`
	BackupBucketURL      string        `mapstructure:"backup-bucket-url"`
	BackupS3Endpoint     string        `mapstructure:"backup-s3-endpoint"`
	BackupS3Region       string        `mapstructure:"backup-s3-region"`
	BackupS3AccessKey    string        `mapstructure:"backup-s3-access-key"`
	BackupS3SecretKey    string        `mapstructure:"backup-s3-secret-key"`
	BackupS3SessionToken string        `mapstructure:"backup-s3-session-token"`
	BackupS3UseSSL       bool          `mapstructure:"backup-s3-use-ssl"`

	ConfigPath string `mapstructure:"-"` // not from config file
}
