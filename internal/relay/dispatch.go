// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package relay

import (
	"errors"
	"fmt"

	"github.com/tomtom215/alertrelay/internal/alert"
)

// DeliveryReport summarizes one broadcast.
type DeliveryReport struct {
	// Delivered counts queued frames per session kind.
	Delivered map[Kind]int
	// Skipped sessions were registered but no longer open.
	Skipped int
	// Dropped sessions had a full outbound queue.
	Dropped int
}

// Total returns the number of sessions the alert was queued to.
func (r DeliveryReport) Total() int {
	n := 0
	for _, c := range r.Delivered {
		n += c
	}
	return n
}

// ByKindName returns Delivered keyed by kind name.
func (r DeliveryReport) ByKindName() map[string]int {
	out := make(map[string]int, len(r.Delivered))
	for k, n := range r.Delivered {
		out[k.String()] = n
	}
	return out
}

// Dispatcher fans accepted alerts out to every open session.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch serializes a once and queues it to every registered open
// connection in connect order. Closed connections are skipped, not removed;
// the read pump's close event removes them.
func (d *Dispatcher) Dispatch(a *alert.Alert) (DeliveryReport, error) {
	report := DeliveryReport{Delivered: make(map[Kind]int, len(Kinds))}

	frame, err := encodeNewAlert(a)
	if err != nil {
		return report, fmt.Errorf("encode alert %s: %w", a.ID, err)
	}

	for _, e := range d.registry.All() {
		if !e.Conn.Open() {
			report.Skipped++
			continue
		}
		switch err := e.Conn.Send(frame); {
		case err == nil:
			report.Delivered[e.Session.Kind]++
		case errors.Is(err, ErrQueueFull):
			report.Dropped++
		default:
			report.Skipped++
		}
	}
	return report, nil
}
