// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package services

import (
	"context"
)

// ContextHub matches *relay.Hub's event loop.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// RelayHubService supervises the relay hub's event loop. The hub keeps its
// registry and history across a restart.
type RelayHubService struct {
	hub  ContextHub
	name string
}

// NewRelayHubService creates the wrapper.
func NewRelayHubService(hub ContextHub) *RelayHubService {
	return &RelayHubService{
		hub:  hub,
		name: "relay-hub",
	}
}

// Serve implements suture.Service by delegating to RunWithContext.
func (s *RelayHubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String names the service in supervisor logs.
func (s *RelayHubService) String() string {
	return s.name
}
