// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/alertrelay/internal/api"
	"github.com/tomtom215/alertrelay/internal/config"
	"github.com/tomtom215/alertrelay/internal/dedup"
	"github.com/tomtom215/alertrelay/internal/export"
	"github.com/tomtom215/alertrelay/internal/journal"
	"github.com/tomtom215/alertrelay/internal/logging"
	"github.com/tomtom215/alertrelay/internal/relay"
)

// relayConfig maps the loaded configuration onto the hub's settings.
func relayConfig(cfg *config.Config) (relay.Config, error) {
	loc, err := cfg.Relay.Location()
	if err != nil {
		return relay.Config{}, fmt.Errorf("relay timezone: %w", err)
	}

	rc := relay.DefaultConfig()
	rc.HistoryCapacity = cfg.Relay.HistoryCapacity
	rc.PrimerSize = cfg.Relay.HistoryPrimerSize
	rc.ConfidenceThreshold = cfg.Relay.ConfidenceThreshold
	rc.Dedup = dedup.Config{
		Window:            cfg.Relay.DedupWindow,
		MaxDistanceMeters: cfg.Relay.DedupMaxDistanceMeters,
		ConfidenceDelta:   cfg.Relay.DedupConfidenceDelta,
		Location:          loc,
	}
	rc.ProbeInterval = cfg.Liveness.ProbeInterval
	rc.StaleTimeout = cfg.Liveness.StaleTimeout
	rc.Transport = relay.TransportConfig{
		SendQueueSize:   cfg.Relay.SendQueueSize,
		WriteTimeout:    cfg.Liveness.WriteTimeout,
		MaxMessageBytes: cfg.Relay.MaxMessageBytes,
	}
	return rc, nil
}

// sinks opens the optional alert sinks. The returned closers must be closed
// after the hub has stopped; the NATS publisher is closed by its
// supervisor service instead.
func sinks(cfg *config.Config) ([]relay.Sink, *export.NATSPublisher, []io.Closer, error) {
	var (
		out     []relay.Sink
		natsPub *export.NATSPublisher
		closers []io.Closer
	)

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open alert journal: %w", err)
		}
		out = append(out, j)
		closers = append(closers, j)
		logging.Info().Str("path", j.Path()).Msg("Alert journal enabled")
	}

	if cfg.NATS.Enabled {
		p, err := export.NewNATSPublisher(export.Config{
			URL:            cfg.NATS.URL,
			Subject:        cfg.NATS.Subject,
			ClientName:     cfg.NATS.ClientName,
			ConnectTimeout: cfg.NATS.ConnectTimeout,
			MaxReconnects:  cfg.NATS.MaxReconnects,
		})
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, nil, fmt.Errorf("connect NATS exporter: %w", err)
		}
		out = append(out, p)
		natsPub = p
		logging.Info().Str("subject", cfg.NATS.Subject).Msg("NATS exporter enabled")
	}

	return out, natsPub, closers, nil
}

// newHTTPServer builds the HTTP server around the chi router. There is no
// read or write timeout because upgraded connections are long-lived.
func newHTTPServer(cfg *config.Config, hub api.RelayHub, exporters ...api.ConnectionChecker) *http.Server {
	handler := api.NewHandler(hub, cfg.Security.CORSOrigins)
	handler.SetExporters(exporters...)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Security)))

	return &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
