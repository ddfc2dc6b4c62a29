// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/tomtom215/alertrelay/internal/logging"
)

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.validateLiveness(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateJournal(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRelay() error {
	r := c.Relay
	if r.HistoryCapacity < 1 {
		return fmt.Errorf("MAX_ALERTAS must be at least 1, got %d", r.HistoryCapacity)
	}
	if r.HistoryPrimerSize < 0 {
		return fmt.Errorf("HISTORY_PRIMER_SIZE must be non-negative, got %d", r.HistoryPrimerSize)
	}
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1 {
		return fmt.Errorf("UMBRAL_MINIMO_CONFIANZA must be between 0 and 1, got %v", r.ConfidenceThreshold)
	}
	if r.DedupWindow < 0 {
		return fmt.Errorf("DEDUP_WINDOW must be non-negative, got %v", r.DedupWindow)
	}
	if r.DedupMaxDistanceMeters < 0 {
		return fmt.Errorf("DEDUP_MAX_DISTANCE_METERS must be non-negative, got %v", r.DedupMaxDistanceMeters)
	}
	if r.DedupConfidenceDelta < 0 {
		return fmt.Errorf("DEDUP_CONFIDENCE_DELTA must be non-negative, got %v", r.DedupConfidenceDelta)
	}
	if _, err := r.Location(); err != nil {
		return fmt.Errorf("ALERT_TIMEZONE: %w", err)
	}
	if r.SendQueueSize < 1 {
		return fmt.Errorf("WS_SEND_QUEUE_SIZE must be at least 1, got %d", r.SendQueueSize)
	}
	if r.MaxMessageBytes < 512 {
		return fmt.Errorf("WS_MAX_MESSAGE_BYTES must be at least 512, got %d", r.MaxMessageBytes)
	}
	return nil
}

func (c *Config) validateLiveness() error {
	l := c.Liveness
	if l.ProbeInterval < time.Second {
		return fmt.Errorf("LIVENESS_PROBE_INTERVAL must be at least 1s, got %v", l.ProbeInterval)
	}
	if l.StaleTimeout < l.ProbeInterval {
		return fmt.Errorf("LIVENESS_STALE_TIMEOUT (%v) must not be shorter than LIVENESS_PROBE_INTERVAL (%v)",
			l.StaleTimeout, l.ProbeInterval)
	}
	if l.WriteTimeout <= 0 {
		return fmt.Errorf("WS_WRITE_TIMEOUT must be positive, got %v", l.WriteTimeout)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownGrace <= 0 {
		return fmt.Errorf("SHUTDOWN_GRACE must be positive, got %v", c.Server.ShutdownGrace)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be one of: development, production")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must not be empty; use * to allow any origin")
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

// ShouldWarnAboutCORS reports whether a wildcard origin is configured in
// production.
func (c *Config) ShouldWarnAboutCORS() bool {
	if !c.IsProduction() {
		return false
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateJournal() error {
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("ALERT_LOG_PATH is required when GUARDAR_LOGS=true")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	u, err := url.Parse(c.NATS.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("NATS_URL must be a valid URL (e.g. nats://127.0.0.1:4222), got %q", c.NATS.URL)
	}
	if c.NATS.Subject == "" {
		return fmt.Errorf("NATS_SUBJECT is required when NATS_ENABLED=true")
	}
	if c.NATS.ConnectTimeout <= 0 {
		return fmt.Errorf("NATS_CONNECT_TIMEOUT must be positive, got %v", c.NATS.ConnectTimeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a recognized level (trace, debug, info, warn, error)", c.Logging.Level)
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
