// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

/*
Command relay runs the alert relay hub.

Detector clients push security alerts over a WebSocket; observer clients
receive every accepted alert live, primed on connect with the most recent
history. The process runs under a suture supervisor tree:

	RootSupervisor ("alertrelay")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── relay hub event loop
	│   └── NATS exporter (optional)
	└── APISupervisor ("api-layer")
	    └── HTTP server (chi router, WebSocket upgrade)

# Configuration

Defaults, then an optional YAML file (CONFIG_PATH or ./config.yaml), then
environment variables:

	PORT=8080                      # HTTP port
	MAX_ALERTAS=100                # history capacity
	UMBRAL_MINIMO_CONFIANZA=0.3    # minimum confidence
	DEDUP_WINDOW=5s                # duplicate lookback by event time
	LIVENESS_PROBE_INTERVAL=30s    # ping cadence
	GUARDAR_LOGS=false             # append accepted alerts to ALERT_LOG_PATH
	NATS_ENABLED=false             # publish accepted alerts to NATS_SUBJECT
	LOG_LEVEL=info                 # trace, debug, info, warn, error
	LOG_FORMAT=json                # json or console

# Shutdown

SIGINT or SIGTERM cancels the tree. The hub sends every session a close
frame and the HTTP server drains. If that takes longer than SHUTDOWN_GRACE
the process exits with status 1.
*/
package main
