// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package alert

import (
	"strings"
	"time"
)

// Date and time layouts detectors are known to emit. The first entries match
// Python's strftime("%Y-%m-%d") and strftime("%H:%M:%S").
var (
	dateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006", "02-01-2006"}
	timeLayouts = []string{"15:04:05", "15:04:05.999999", "15:04"}
)

// ParseEventTime combines the detector-supplied date and time strings into
// an instant in loc. The boolean is false when either part is unparseable.
func ParseEventTime(date, clock string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	for _, dl := range dateLayouts {
		d, err := time.ParseInLocation(dl, date, loc)
		if err != nil {
			continue
		}
		for _, tl := range timeLayouts {
			t, err := time.Parse(tl, clock)
			if err != nil {
				continue
			}
			return time.Date(d.Year(), d.Month(), d.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), true
		}
		return time.Time{}, false
	}
	return time.Time{}, false
}

// OccurredAt returns the detector's event instant, falling back to the time
// the relay received the alert when the date/time fields are unparseable.
func (a *Alert) OccurredAt(loc *time.Location) time.Time {
	if t, ok := ParseEventTime(a.Date, a.Time, loc); ok {
		return t
	}
	return a.ReceivedAt
}
