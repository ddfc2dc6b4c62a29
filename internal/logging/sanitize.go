// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package logging

import (
	"fmt"
	"strings"
)

// maxLoggedValueLen bounds client-controlled strings written to logs.
const maxLoggedValueLen = 128

// Sanitize escapes control characters and truncates a client-supplied value
// before it is logged, preventing log injection through alert categories,
// client names, or origins.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	n := 0
	for _, r := range s {
		if n >= maxLoggedValueLen {
			b.WriteString("...")
			break
		}
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
		n++
	}
	return b.String()
}
