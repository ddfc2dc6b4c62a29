// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package alert

import (
	"bytes"
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// LocationKind identifies which variant of Location is populated.
type LocationKind int

const (
	// LocationNone means the detector sent no usable location.
	LocationNone LocationKind = iota

	// LocationText is a free-form place description ("ubicacion": "Gate 3").
	LocationText

	// LocationGeo is a coordinate pair with an optional address label.
	LocationGeo
)

// String implements fmt.Stringer.
func (k LocationKind) String() string {
	switch k {
	case LocationText:
		return "text"
	case LocationGeo:
		return "geo"
	default:
		return "none"
	}
}

// Location is the "ubicacion" field of an alert. Detectors send either a
// string or an object with latitude/longitude and an optional "direccion".
type Location struct {
	Kind      LocationKind
	Text      string
	Latitude  float64
	Longitude float64
	Label     string
}

// TextLocation builds a textual location.
func TextLocation(text string) Location {
	return Location{Kind: LocationText, Text: text}
}

// GeoLocation builds a coordinate location.
func GeoLocation(lat, lon float64, label string) Location {
	return Location{Kind: LocationGeo, Latitude: lat, Longitude: lon, Label: label}
}

// IsZero reports whether the location carries nothing.
func (l Location) IsZero() bool {
	return l.Kind == LocationNone
}

type geoWire struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Direccion string   `json:"direccion,omitempty"`
}

// UnmarshalJSON accepts null, a string, or a coordinate object.
// An empty string or an object without both coordinates decodes to LocationNone.
func (l *Location) UnmarshalJSON(data []byte) error {
	*l = Location{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("decode textual location: %w", err)
		}
		if s != "" {
			*l = TextLocation(s)
		}
		return nil
	case '{':
		var g geoWire
		if err := json.Unmarshal(trimmed, &g); err != nil {
			return fmt.Errorf("decode geo location: %w", err)
		}
		if g.Latitude == nil || g.Longitude == nil {
			return nil
		}
		if math.IsNaN(*g.Latitude) || math.IsNaN(*g.Longitude) {
			return nil
		}
		*l = GeoLocation(*g.Latitude, *g.Longitude, g.Direccion)
		return nil
	default:
		return fmt.Errorf("unsupported location encoding %q", trimmed[0])
	}
}

// MarshalJSON emits the same shape the detector sent.
func (l Location) MarshalJSON() ([]byte, error) {
	switch l.Kind {
	case LocationText:
		return json.Marshal(l.Text)
	case LocationGeo:
		lat, lon := l.Latitude, l.Longitude
		return json.Marshal(geoWire{Latitude: &lat, Longitude: &lon, Direccion: l.Label})
	default:
		return []byte("null"), nil
	}
}
