// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package relay

import "time"

// ReapReason says why the liveness monitor terminated a connection.
type ReapReason string

const (
	// ReapUnregistered: the transport had a connection the registry did not know.
	ReapUnregistered ReapReason = "unregistered"
	// ReapStale: no inbound activity for longer than the stale timeout.
	ReapStale ReapReason = "stale"
	// ReapUnansweredProbe: the previous ping got no pong.
	ReapUnansweredProbe ReapReason = "unanswered_probe"
)

// Reap records one terminated connection. Session is zero for
// ReapUnregistered.
type Reap struct {
	Conn    Conn
	Session Session
	Reason  ReapReason
}

// Monitor runs the periodic liveness sweep.
type Monitor struct {
	registry     *Registry
	staleTimeout time.Duration
}

// NewMonitor creates a monitor over registry.
func NewMonitor(registry *Registry, staleTimeout time.Duration) *Monitor {
	return &Monitor{registry: registry, staleTimeout: staleTimeout}
}

// Sweep probes or reaps every connection in conns. Reaped connections are
// removed from the registry and terminated; survivors are marked awaiting
// and pinged. A connection therefore survives at most one unanswered probe.
func (m *Monitor) Sweep(conns []Conn, now time.Time) []Reap {
	var reaps []Reap

	for _, conn := range conns {
		s, ok := m.registry.Get(conn)
		var reason ReapReason
		switch {
		case !ok:
			reason = ReapUnregistered
		case m.staleTimeout > 0 && now.Sub(s.LastActivity) > m.staleTimeout:
			reason = ReapStale
		case s.Liveness == LivenessAwaiting:
			reason = ReapUnansweredProbe
		default:
			m.registry.SetLiveness(conn, LivenessAwaiting)
			// A failed ping leaves the session awaiting; the next sweep reaps it.
			_ = conn.Ping()
			continue
		}

		m.registry.Remove(conn)
		conn.Terminate()
		reaps = append(reaps, Reap{Conn: conn, Session: s, Reason: reason})
	}

	return reaps
}

// Alive records a pong: the session is idle again and active now.
func (m *Monitor) Alive(conn Conn, now time.Time) bool {
	if !m.registry.SetLiveness(conn, LivenessIdle) {
		return false
	}
	return m.registry.Touch(conn, now)
}
