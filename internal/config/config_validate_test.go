// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero capacity", func(c *Config) { c.Relay.HistoryCapacity = 0 }, "MAX_ALERTAS"},
		{"negative threshold", func(c *Config) { c.Relay.ConfidenceThreshold = -0.1 }, "UMBRAL_MINIMO_CONFIANZA"},
		{"threshold of one is allowed", func(c *Config) { c.Relay.ConfidenceThreshold = 1 }, ""},
		{"bad timezone", func(c *Config) { c.Relay.Timezone = "Mars/Olympus" }, "ALERT_TIMEZONE"},
		{"utc timezone", func(c *Config) { c.Relay.Timezone = "UTC" }, ""},
		{"tiny probe interval", func(c *Config) { c.Liveness.ProbeInterval = 10 * time.Millisecond }, "LIVENESS_PROBE_INTERVAL"},
		{"stale shorter than probe", func(c *Config) { c.Liveness.StaleTimeout = 10 * time.Second }, "LIVENESS_STALE_TIMEOUT"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "PORT"},
		{"unknown environment", func(c *Config) { c.Server.Environment = "staging" }, "ENVIRONMENT"},
		{"empty cors", func(c *Config) { c.Security.CORSOrigins = nil }, "CORS_ORIGINS"},
		{"rate limit disabled skips checks", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"journal without path", func(c *Config) {
			c.Journal.Enabled = true
			c.Journal.Path = ""
		}, "ALERT_LOG_PATH"},
		{"nats bad url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.URL = "not a url"
		}, "NATS_URL"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"log level is case-insensitive", func(c *Config) { c.Logging.Level = "WARN" }, ""},
		{"warning alias", func(c *Config) { c.Logging.Level = "warning" }, ""},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	cfg := defaultConfig()
	if cfg.ShouldWarnAboutCORS() {
		t.Error("development should not warn")
	}
	cfg.Server.Environment = "production"
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("production with * should warn")
	}
	cfg.Security.CORSOrigins = []string{"https://ops.example"}
	if cfg.ShouldWarnAboutCORS() {
		t.Error("explicit origins should not warn")
	}
}
