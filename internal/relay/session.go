// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package relay

import "time"

// Kind is the role a client declared through an identification message.
type Kind int

const (
	// KindUnknown is every session until it identifies itself.
	KindUnknown Kind = iota
	// KindObserver receives alerts ("app").
	KindObserver
	// KindDetector produces alerts ("python").
	KindDetector
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindUnknown, KindObserver, KindDetector}

func (k Kind) String() string {
	switch k {
	case KindObserver:
		return "observer"
	case KindDetector:
		return "detector"
	default:
		return "unknown"
	}
}

// Client names used on the wire by existing clients.
const (
	ClientApp    = "app"
	ClientPython = "python"
)

// KindFromClient maps the identification "client" value to a Kind. The
// second result is false for unrecognized names.
func KindFromClient(client string) (Kind, bool) {
	switch client {
	case ClientApp:
		return KindObserver, true
	case ClientPython:
		return KindDetector, true
	default:
		return KindUnknown, false
	}
}

// LivenessState tracks the ping/pong handshake of one session.
type LivenessState int

const (
	// LivenessIdle means the last probe was answered (or none was sent yet).
	LivenessIdle LivenessState = iota
	// LivenessAwaiting means a probe is outstanding.
	LivenessAwaiting
)

func (s LivenessState) String() string {
	if s == LivenessAwaiting {
		return "awaiting"
	}
	return "idle"
}

// Session is the registry's record of one connected client.
type Session struct {
	ID           string
	RemoteAddr   string
	Kind         Kind
	ConnectedAt  time.Time
	LastActivity time.Time
	Liveness     LivenessState

	// seq orders sessions with identical connect times.
	seq uint64
}
