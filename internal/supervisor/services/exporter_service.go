// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package services

import (
	"context"
	"fmt"
	"time"
)

// Exporter matches the lifecycle of an outbound alert exporter such as
// *export.NATSPublisher.
type Exporter interface {
	Name() string
	Close(ctx context.Context) error
}

// ExporterService owns an exporter's connection lifetime. The exporter
// reconnects on its own; the service only drains and closes it on shutdown.
type ExporterService struct {
	exporter        Exporter
	shutdownTimeout time.Duration
	name            string
}

// NewExporterService creates the wrapper. A non-positive timeout uses 5s.
func NewExporterService(exporter Exporter, shutdownTimeout time.Duration) *ExporterService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	return &ExporterService{
		exporter:        exporter,
		shutdownTimeout: shutdownTimeout,
		name:            "exporter-" + exporter.Name(),
	}
}

// Serve implements suture.Service. It blocks until ctx is canceled and
// then closes the exporter.
func (s *ExporterService) Serve(ctx context.Context) error {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.exporter.Close(shutdownCtx); err != nil {
		return fmt.Errorf("%s exporter close failed: %w", s.exporter.Name(), err)
	}
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *ExporterService) String() string {
	return s.name
}
