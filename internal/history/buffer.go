// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

// Package history keeps the bounded, arrival-ordered list of accepted alerts.
//
// Buffer is not safe for concurrent use. The relay hub owns it and touches it
// only from its event loop; other goroutines read copies via the hub.
package history

import "github.com/tomtom215/alertrelay/internal/alert"

// DefaultCapacity matches the MAX_ALERTAS default.
const DefaultCapacity = 100

// Buffer is a FIFO of alerts that never grows past its capacity.
type Buffer struct {
	alerts   []*alert.Alert
	capacity int
}

// New creates a buffer holding at most capacity alerts.
// A non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		alerts:   make([]*alert.Alert, 0, capacity),
		capacity: capacity,
	}
}

// Append inserts a at the end, evicting from the front until the length is
// back within capacity. It returns the number of evicted alerts.
func (b *Buffer) Append(a *alert.Alert) int {
	b.alerts = append(b.alerts, a)

	evicted := len(b.alerts) - b.capacity
	if evicted <= 0 {
		return 0
	}

	// Copy down instead of reslicing so the backing array does not creep
	// forward and retain evicted alerts.
	n := copy(b.alerts, b.alerts[evicted:])
	for i := n; i < len(b.alerts); i++ {
		b.alerts[i] = nil
	}
	b.alerts = b.alerts[:n]
	return evicted
}

// Recent returns the last k alerts in arrival order (fewer if the buffer is
// shorter). The returned slice is a copy.
func (b *Buffer) Recent(k int) []*alert.Alert {
	if k <= 0 || len(b.alerts) == 0 {
		return nil
	}
	if k > len(b.alerts) {
		k = len(b.alerts)
	}
	out := make([]*alert.Alert, k)
	copy(out, b.alerts[len(b.alerts)-k:])
	return out
}

// All returns a copy of every alert in arrival order.
func (b *Buffer) All() []*alert.Alert {
	out := make([]*alert.Alert, len(b.alerts))
	copy(out, b.alerts)
	return out
}

// Backward calls fn for each alert from newest to oldest until fn returns false.
func (b *Buffer) Backward(fn func(*alert.Alert) bool) {
	for i := len(b.alerts) - 1; i >= 0; i-- {
		if !fn(b.alerts[i]) {
			return
		}
	}
}

// Len returns the number of stored alerts.
func (b *Buffer) Len() int {
	return len(b.alerts)
}

// Cap returns the configured capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}
