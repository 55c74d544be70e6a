// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

// Package config provides layered configuration for Leadfeed using Koanf v2:
// struct defaults, then an optional YAML config file, then environment
// variables (highest priority).
package config

import "time"

// Config is the root configuration for the Leadfeed server.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	NATS     NATSConfig     `koanf:"nats"`    // Optional: event ingestion via Watermill/NATS JetStream
	Scoring  ScoringConfig  `koanf:"scoring"` // External scoring engine client
	Stages   StagesConfig   `koanf:"stages"`
	Packs    PacksConfig    `koanf:"packs"`
	Feed     FeedConfig     `koanf:"feed"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig controls the DuckDB connection.
type DatabaseConfig struct {
	// Path is the database file path, or ":memory:" for tests.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// NATSConfig controls the Watermill/NATS JetStream ingest transport.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	// Topic is the subject company events are published on.
	Topic       string `koanf:"topic"`
	StreamName  string `koanf:"stream_name"`
	DurableName string `koanf:"durable_name"`
	QueueGroup  string `koanf:"queue_group"`

	SubscribersCount int           `koanf:"subscribers_count"`
	QueueCapacity    int           `koanf:"queue_capacity"`
	MaxReconnects    int           `koanf:"max_reconnects"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`
	MaxDeliver       int           `koanf:"max_deliver"`
	MaxAckPending    int           `koanf:"max_ack_pending"`
}

// ScoringConfig controls the external scoring engine client.
type ScoringConfig struct {
	URL       string        `koanf:"url"`
	Timeout   time.Duration `koanf:"timeout"`
	BatchSize int           `koanf:"batch_size"`
}

// StagesConfig controls stage execution.
type StagesConfig struct {
	// RateLimitPerHour caps stage invocations per (workspace, stage kind)
	// within RateLimitWindow. <= 0 disables rate limiting.
	RateLimitPerHour int           `koanf:"rate_limit_per_hour"`
	RateLimitWindow  time.Duration `koanf:"rate_limit_window"`

	// IngestBatchSize caps how many queued events one ingest stage run drains.
	IngestBatchSize int `koanf:"ingest_batch_size"`
}

// PacksConfig controls configuration bundle loading.
type PacksConfig struct {
	// Dir is the directory of pack YAML files. Empty = built-in default pack only.
	Dir string `koanf:"dir"`
}

// FeedConfig controls the ranked feed query service.
type FeedConfig struct {
	// CompositeFloor filters projection reads to composite >= floor.
	CompositeFloor int `koanf:"composite_floor"`

	// DefaultLimit is the result cap when a query omits one.
	DefaultLimit int `koanf:"default_limit"`
}

// APIConfig controls HTTP API behavior.
type APIConfig struct {
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig controls the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. These are loaded
// first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/leadfeed.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8742,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   true,
			StoreDir:         "/data/nats/jetstream",
			MaxMemory:        1 << 30,  // 1GB
			MaxStore:         10 << 30, // 10GB
			Topic:            "company.events",
			StreamName:       "",
			DurableName:      "leadfeed-ingest",
			QueueGroup:       "ingesters",
			SubscribersCount: 4,
			QueueCapacity:    10000,
			MaxReconnects:    -1, // retry forever
			ReconnectWait:    2 * time.Second,
			AckWaitTimeout:   30 * time.Second,
			CloseTimeout:     30 * time.Second,
			MaxDeliver:       5,
			MaxAckPending:    1000,
		},
		Scoring: ScoringConfig{
			URL:       "",
			Timeout:   60 * time.Second,
			BatchSize: 50,
		},
		Stages: StagesConfig{
			RateLimitPerHour: 0, // disabled by default
			RateLimitWindow:  time.Hour,
			IngestBatchSize:  1000,
		},
		Packs: PacksConfig{
			Dir: "",
		},
		Feed: FeedConfig{
			CompositeFloor: 0,
			DefaultLimit:   50,
		},
		API: APIConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
