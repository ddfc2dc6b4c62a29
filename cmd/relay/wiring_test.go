// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/alertrelay/internal/api"
	"github.com/tomtom215/alertrelay/internal/config"
	"github.com/tomtom215/alertrelay/internal/relay"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestRelayConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Relay.HistoryCapacity = 42
	cfg.Relay.HistoryPrimerSize = 7
	cfg.Relay.ConfidenceThreshold = 0.5
	cfg.Relay.DedupWindow = 3 * time.Second
	cfg.Relay.Timezone = "UTC"
	cfg.Liveness.ProbeInterval = time.Second
	cfg.Liveness.WriteTimeout = 2 * time.Second
	cfg.Relay.SendQueueSize = 16

	rc, err := relayConfig(cfg)
	if err != nil {
		t.Fatalf("relayConfig: %v", err)
	}
	if rc.HistoryCapacity != 42 || rc.PrimerSize != 7 || rc.ConfidenceThreshold != 0.5 {
		t.Errorf("relay settings not mapped: %+v", rc)
	}
	if rc.Dedup.Window != 3*time.Second || rc.Dedup.Location != time.UTC {
		t.Errorf("dedup settings not mapped: %+v", rc.Dedup)
	}
	if rc.ProbeInterval != time.Second || rc.Transport.WriteTimeout != 2*time.Second || rc.Transport.SendQueueSize != 16 {
		t.Errorf("liveness/transport settings not mapped: %+v", rc)
	}
}

func TestRelayConfig_BadTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Relay.Timezone = "Not/AZone"
	if _, err := relayConfig(cfg); err == nil {
		t.Fatal("relayConfig accepted an unknown timezone")
	}
}

func TestSinks(t *testing.T) {
	t.Run("none by default", func(t *testing.T) {
		out, natsPub, closers, err := sinks(testConfig(t))
		if err != nil {
			t.Fatalf("sinks: %v", err)
		}
		if len(out) != 0 || natsPub != nil || len(closers) != 0 {
			t.Errorf("sinks = %v, %v, %v; want none", out, natsPub, closers)
		}
	})

	t.Run("journal", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Journal.Enabled = true
		cfg.Journal.Path = filepath.Join(t.TempDir(), "alerts.jsonl")

		out, _, closers, err := sinks(cfg)
		if err != nil {
			t.Fatalf("sinks: %v", err)
		}
		defer func() {
			for _, c := range closers {
				_ = c.Close()
			}
		}()
		if len(out) != 1 || out[0].Name() != "journal" || len(closers) != 1 {
			t.Errorf("want one journal sink, got %d sinks", len(out))
		}
	})

	t.Run("journal open failure", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Journal.Enabled = true
		cfg.Journal.Path = filepath.Join(t.TempDir(), "missing-dir", "alerts.jsonl")

		if _, _, _, err := sinks(cfg); err == nil {
			t.Fatal("sinks succeeded with an unwritable journal path")
		}
	})
}

func TestNewHTTPServer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = 9191

	srv := newHTTPServer(cfg, relay.New(relay.DefaultConfig()))
	if srv.Addr != cfg.Server.Addr() {
		t.Errorf("Addr = %q, want %q", srv.Addr, cfg.Server.Addr())
	}
	if srv.ReadHeaderTimeout != cfg.Server.ReadHeaderTimeout {
		t.Errorf("ReadHeaderTimeout = %v", srv.ReadHeaderTimeout)
	}
	if srv.WriteTimeout != 0 {
		t.Errorf("WriteTimeout = %v, want none for long-lived sessions", srv.WriteTimeout)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Body.String() != api.StatusText {
		t.Errorf("GET / = %q", rec.Body.String())
	}
}
