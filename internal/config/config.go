// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting via environment variables
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Relay    RelayConfig    `koanf:"relay"`
	Liveness LivenessConfig `koanf:"liveness"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Journal  JournalConfig  `koanf:"journal"`
	NATS     NATSConfig     `koanf:"nats"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// RelayConfig controls alert admission and history retention.
type RelayConfig struct {
	// HistoryCapacity bounds the in-memory alert history (MAX_ALERTAS).
	// Default: 100
	HistoryCapacity int `koanf:"history_capacity"`

	// HistoryPrimerSize is how many recent alerts a new session receives
	// on connect.
	// Default: 20
	HistoryPrimerSize int `koanf:"history_primer_size"`

	// ConfidenceThreshold rejects alerts whose confianza is below it
	// (UMBRAL_MINIMO_CONFIANZA).
	// Default: 0.3
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`

	// DedupWindow is how far back, by detector event time, duplicates are
	// searched for.
	// Default: 5s
	DedupWindow time.Duration `koanf:"dedup_window"`

	// DedupMaxDistanceMeters is the radius under which two geo alerts of the
	// same category are the same event.
	// Default: 10
	DedupMaxDistanceMeters float64 `koanf:"dedup_max_distance_meters"`

	// DedupConfidenceDelta is the confidence difference under which two
	// alerts without comparable locations are the same event.
	// Default: 0.1
	DedupConfidenceDelta float64 `koanf:"dedup_confidence_delta"`

	// Timezone interprets detector fecha/hora values ("Local", "UTC" or an
	// IANA name).
	// Default: Local
	Timezone string `koanf:"timezone"`

	// SendQueueSize is the per-session outbound frame queue length.
	// Default: 256
	SendQueueSize int `koanf:"send_queue_size"`

	// MaxMessageBytes caps a single inbound WebSocket frame.
	// Default: 65536
	MaxMessageBytes int64 `koanf:"max_message_bytes"`
}

// Location resolves Timezone.
func (r RelayConfig) Location() (*time.Location, error) {
	switch r.Timezone {
	case "", "Local", "local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// LivenessConfig controls the periodic session probe.
type LivenessConfig struct {
	// ProbeInterval is the time between liveness sweeps.
	// Default: 30s
	ProbeInterval time.Duration `koanf:"probe_interval"`

	// StaleTimeout reaps sessions with no inbound activity for this long.
	// Default: 90s
	StaleTimeout time.Duration `koanf:"stale_timeout"`

	// WriteTimeout bounds a single socket write.
	// Default: 10s
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// ReadHeaderTimeout bounds request header reads.
	// Default: 10s
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`

	// ShutdownGrace is how long shutdown may take before the process
	// force-exits.
	// Default: 5s
	ShutdownGrace time.Duration `koanf:"shutdown_grace"`

	// Environment is "development" or "production".
	Environment string `koanf:"environment"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SecurityConfig holds CORS, WebSocket origin and rate limit settings.
type SecurityConfig struct {
	// CORSOrigins are allowed HTTP origins. They also gate WebSocket
	// upgrades; "*" allows any origin.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs requests per RateLimitWindow per client IP on the
	// HTTP API. The WebSocket endpoint is not rate limited.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// JournalConfig controls the optional on-disk log of accepted alerts.
type JournalConfig struct {
	// Enabled toggles the journal (GUARDAR_LOGS).
	// Default: false
	Enabled bool `koanf:"enabled"`

	// Path is the JSON-lines file accepted alerts are appended to.
	// Default: alerts.jsonl
	Path string `koanf:"path"`
}

// NATSConfig controls the optional exporter that publishes accepted alerts
// to a NATS subject for downstream consumers.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`

	// ClientName identifies this relay on the NATS server.
	ClientName string `koanf:"client_name"`

	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration `koanf:"connect_timeout"`

	// MaxReconnects is passed to nats.MaxReconnects; -1 retries forever.
	MaxReconnects int `koanf:"max_reconnects"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration from defaults, optional config file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
