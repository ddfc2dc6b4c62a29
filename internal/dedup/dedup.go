// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

// Package dedup decides whether a candidate alert repeats one that was
// accepted moments earlier.
//
// Detectors re-fire on consecutive frames of the same incident. The engine
// walks the history newest-first and compares only against alerts whose event
// time falls inside the window:
//
//   - different category: not a match, keep scanning
//   - both textual locations: match when the strings are equal
//   - both geo locations: match when closer than MaxDistanceMeters
//   - anything else (no location, or mixed kinds): match when the
//     confidences differ by less than ConfidenceDelta
//
// The first entry older than the window ends the scan, since everything
// behind it is older still.
package dedup

import (
	"math"
	"time"

	"github.com/tomtom215/alertrelay/internal/alert"
	"github.com/tomtom215/alertrelay/internal/geo"
	"github.com/tomtom215/alertrelay/internal/history"
)

// Config holds deduplication thresholds.
type Config struct {
	// Window is how far back (by event time) to look for repeats.
	// Default: 5s
	Window time.Duration

	// MaxDistanceMeters is the geo distance under which two locations are the same.
	// Default: 10
	MaxDistanceMeters float64

	// ConfidenceDelta is the confidence difference under which two
	// location-less alerts are the same.
	// Default: 0.1
	ConfidenceDelta float64

	// Location is the zone used to interpret detector dates and times.
	// Default: time.Local
	Location *time.Location
}

// DefaultConfig returns the thresholds the relay ships with.
func DefaultConfig() Config {
	return Config{
		Window:            5 * time.Second,
		MaxDistanceMeters: 10,
		ConfidenceDelta:   0.1,
		Location:          time.Local,
	}
}

// Engine evaluates candidates against a history buffer.
type Engine struct {
	config Config
}

// New creates an engine, filling zero-valued thresholds with defaults.
func New(config Config) *Engine {
	defaults := DefaultConfig()
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.MaxDistanceMeters <= 0 {
		config.MaxDistanceMeters = defaults.MaxDistanceMeters
	}
	if config.ConfidenceDelta <= 0 {
		config.ConfidenceDelta = defaults.ConfidenceDelta
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}
	return &Engine{config: config}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// IsDuplicate reports whether candidate repeats an in-window alert in buf.
func (e *Engine) IsDuplicate(candidate *alert.Alert, buf *history.Buffer, now time.Time) bool {
	duplicate := false

	buf.Backward(func(existing *alert.Alert) bool {
		if now.Sub(existing.OccurredAt(e.config.Location)) > e.config.Window {
			return false
		}
		if existing.Type != candidate.Type {
			return true
		}
		if e.Matches(existing, candidate) {
			duplicate = true
			return false
		}
		return true
	})

	return duplicate
}

// Matches compares two alerts of the same category, ignoring time.
func (e *Engine) Matches(existing, candidate *alert.Alert) bool {
	a, b := existing.Location, candidate.Location

	switch {
	case a.Kind == alert.LocationText && b.Kind == alert.LocationText:
		return a.Text == b.Text
	case a.Kind == alert.LocationGeo && b.Kind == alert.LocationGeo:
		d := geo.HaversineMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
		return d < e.config.MaxDistanceMeters
	default:
		// Mixed kinds (text vs geo, or one side without a location) land
		// here together with the no-location case.
		return math.Abs(existing.Confidence-candidate.Confidence) < e.config.ConfidenceDelta
	}
}
