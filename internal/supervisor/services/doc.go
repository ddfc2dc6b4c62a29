// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

// Package services adapts the relay's components to suture.Service.
//
// Each wrapper depends on a small interface instead of the concrete type so
// the supervisor packages never import the relay or transport packages.
package services
