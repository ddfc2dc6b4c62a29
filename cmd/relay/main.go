// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomtom215/alertrelay/docs"
	"github.com/tomtom215/alertrelay/internal/api"
	"github.com/tomtom215/alertrelay/internal/config"
	"github.com/tomtom215/alertrelay/internal/logging"
	"github.com/tomtom215/alertrelay/internal/metrics"
	"github.com/tomtom215/alertrelay/internal/relay"
	"github.com/tomtom215/alertrelay/internal/supervisor"
	"github.com/tomtom215/alertrelay/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// @title Alertrelay API
// @version 1.0
// @description Real-time security alert relay hub: WebSocket sessions plus HTTP diagnostics.
// @license.name AGPL-3.0-or-later
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Int("history_capacity", cfg.Relay.HistoryCapacity).
		Float64("confidence_threshold", cfg.Relay.ConfidenceThreshold).
		Msg("Starting alert relay")
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin in production; set CORS_ORIGINS")
	}

	rc, err := relayConfig(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid relay configuration")
	}

	alertSinks, natsPub, closers, err := sinks(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open alert sinks")
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing alert sink")
			}
		}
	}()

	hub := relay.New(rc, alertSinks...)

	var exporters []api.ConnectionChecker
	if natsPub != nil {
		exporters = append(exporters, natsPub)
	}
	server := newHTTPServer(cfg, hub, exporters...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownGrace,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMessagingService(services.NewRelayHubService(hub))
	if natsPub != nil {
		tree.AddMessagingService(services.NewExporterService(natsPub, cfg.Server.ShutdownGrace))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownGrace))

	metrics.SetAppInfo(version)
	go reportUptime(ctx, hub.StartedAt())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()

		// Hard stop if the tree does not drain within the grace period.
		time.Sleep(cfg.Server.ShutdownGrace)
		logging.Error().Dur("grace", cfg.Server.ShutdownGrace).Msg("Shutdown grace period exceeded, forcing exit")
		os.Exit(1)
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Alert relay stopped")
}

// reportUptime refreshes app_uptime_seconds until ctx is canceled.
func reportUptime(ctx context.Context, start time.Time) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	metrics.UpdateUptime(start)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateUptime(start)
		}
	}
}
