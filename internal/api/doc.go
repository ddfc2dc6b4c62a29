// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

/*
Package api serves the relay's HTTP surface on a chi router.

Routes:

	GET /                      plain-text status, or WebSocket upgrade
	GET /alertas               buffered alerts as a bare JSON array
	GET /ws                    WebSocket upgrade into the relay hub
	GET /metrics               Prometheus exposition
	GET /api/v1/alerts         buffered alerts, optional ?limit=
	GET /api/v1/metrics        sessions by kind, buffer occupancy, uptime
	GET /api/v1/health/live    liveness probe
	GET /api/v1/health/ready   readiness probe (hub event loop answering)

The upgrade routes sit outside the metrics and rate limiting middleware:
the upgrade needs the raw http.Hijacker and sessions are long-lived.
*/
package api
