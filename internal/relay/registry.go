// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package relay

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Entry pairs a connection with a copy of its session.
type Entry struct {
	Conn    Conn
	Session Session
}

// Registry maps live connections to their sessions. It is owned by the hub
// goroutine and is not safe for concurrent use.
type Registry struct {
	sessions map[Conn]*Session
	nextSeq  uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[Conn]*Session)}
}

// Register records a new connection and returns its generated session id.
// Registering a connection twice replaces the earlier session.
func (r *Registry) Register(conn Conn, remoteAddr string, now time.Time) string {
	r.nextSeq++
	s := &Session{
		ID:           uuid.New().String(),
		RemoteAddr:   remoteAddr,
		Kind:         KindUnknown,
		ConnectedAt:  now,
		LastActivity: now,
		Liveness:     LivenessIdle,
		seq:          r.nextSeq,
	}
	r.sessions[conn] = s
	return s.ID
}

// SetKind updates the declared kind. It reports false for unknown connections.
func (r *Registry) SetKind(conn Conn, kind Kind) bool {
	s, ok := r.sessions[conn]
	if ok {
		s.Kind = kind
	}
	return ok
}

// Touch refreshes last activity.
func (r *Registry) Touch(conn Conn, now time.Time) bool {
	s, ok := r.sessions[conn]
	if ok {
		s.LastActivity = now
	}
	return ok
}

// SetLiveness updates the probe state.
func (r *Registry) SetLiveness(conn Conn, state LivenessState) bool {
	s, ok := r.sessions[conn]
	if ok {
		s.Liveness = state
	}
	return ok
}

// Get returns a copy of the session for conn.
func (r *Registry) Get(conn Conn) (Session, bool) {
	s, ok := r.sessions[conn]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Remove deletes conn and returns the removed session. Removing an absent
// connection is a no-op.
func (r *Registry) Remove(conn Conn) (Session, bool) {
	s, ok := r.sessions[conn]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, conn)
	return *s, true
}

// All returns every entry ordered by connect time.
func (r *Registry) All() []Entry {
	entries := make([]Entry, 0, len(r.sessions))
	for conn, s := range r.sessions {
		entries = append(entries, Entry{Conn: conn, Session: *s})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Session, entries[j].Session
		if !a.ConnectedAt.Equal(b.ConnectedAt) {
			return a.ConnectedAt.Before(b.ConnectedAt)
		}
		return a.seq < b.seq
	})
	return entries
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}

// CountByKind returns the number of sessions per kind. Every kind is
// present in the result, zero or not.
func (r *Registry) CountByKind() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for _, k := range Kinds {
		counts[k] = 0
	}
	for _, s := range r.sessions {
		counts[s.Kind]++
	}
	return counts
}
