// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

/*
Package relay implements the WebSocket session hub that relays security
alerts from detector clients to observer clients.

# Architecture

One goroutine, Hub.RunWithContext, owns every piece of mutable state: the
session Registry, the history Buffer, and the deduplication engine. All
inputs reach it as events on a single channel:

	read pump (per conn) ──► message / pong / closed ──┐
	HTTP upgrade handler ──► connect ──────────────────┼──► Hub loop
	HTTP diagnostics ──────► query ────────────────────┤
	liveness ticker ───────► sweep ────────────────────┘

Because the loop processes events one at a time, no mutex guards the
registry or the history, and messages from one connection are handled in
the order they were read.

Each connection also has a write pump that drains a bounded outbound queue
and is the only goroutine writing to the socket. A session whose queue is
full misses that broadcast; the drop is counted and the session stays
connected.

# Admission Pipeline

Every inbound frame is classified:

  - {"type":"identification","client":"app"|"python"} sets the session kind
  - an object carrying confianza, fecha and hora is an alert candidate
  - anything else is dropped

Candidates below the confidence threshold are rejected with
ErrLowConfidence, repeats of a recent alert with ErrDuplicate. Accepted
alerts receive an id, enter the history, are broadcast as
{"type":"new_alert","alerta":...} to every open session, and are handed to
the configured sinks (journal, NATS).

# Liveness

Every probe interval the Monitor pings each session. A session that has
not answered the previous ping, or has been silent for longer than the
stale timeout, is removed from the registry and its connection terminated.
*/
package relay
