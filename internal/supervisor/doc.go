// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

/*
Package supervisor runs the relay's long-lived services under a suture v4
tree:

	RootSupervisor ("alertrelay")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── RelayHubService
	│   └── ExporterService (if NATS_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crash in one layer restarts only that layer's services. Supervisor events
(start, failure, backoff) are logged through sutureslog.

Services return ctx.Err() on shutdown. Any other error counts as a failure
and is restarted with suture's backoff.
*/
package supervisor
