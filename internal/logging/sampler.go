// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package logging

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Sampler throttles a noisy log site. A misbehaving detector can send
// thousands of malformed frames per second; the first few are logged, then
// at most one per interval. Suppressed counts are reported on the next
// emitted line via Do's argument.
type Sampler struct {
	mu         sync.Mutex
	sometimes  rate.Sometimes
	suppressed int
}

// NewSampler logs the first burst events, then one per interval.
func NewSampler(burst int, interval time.Duration) *Sampler {
	return &Sampler{sometimes: rate.Sometimes{First: burst, Interval: interval}}
}

// Do runs fn when the sampler allows it, passing how many events were
// suppressed since the previous call of fn.
func (s *Sampler) Do(fn func(suppressed int)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ran := false
	s.sometimes.Do(func() {
		ran = true
		fn(s.suppressed)
		s.suppressed = 0
	})
	if !ran {
		s.suppressed++
	}
}
