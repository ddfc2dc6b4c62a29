// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/alertrelay/internal/alert"
	"github.com/tomtom215/alertrelay/internal/dedup"
	"github.com/tomtom215/alertrelay/internal/history"
)

// Admission errors. They are logged and counted, never sent to clients.
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrNotAlert         = errors.New("message is not an alert")
	ErrLowConfidence    = errors.New("confidence below threshold")
	ErrDuplicate        = errors.New("duplicate alert")
)

// InboundKind classifies one inbound message.
type InboundKind int

const (
	InboundIdentification InboundKind = iota
	InboundAlert
)

// Inbound is a classified inbound message. Client is set for
// identifications, Candidate for alerts.
type Inbound struct {
	Kind      InboundKind
	Client    string
	Candidate *alert.Candidate
}

// Classify parses one frame. Non-JSON input and type mismatches on known
// alert fields yield ErrMalformedPayload; objects without confianza, fecha
// and hora yield ErrNotAlert.
func Classify(data []byte) (*Inbound, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: null message", ErrMalformedPayload)
	}

	var msgType string
	if raw, ok := fields[alert.KeyType]; ok {
		// A non-string type cannot be an identification; leave it for the
		// alert decoder to reject.
		_ = json.Unmarshal(raw, &msgType)
	}

	if msgType == MessageTypeIdentification {
		var ident IdentificationMessage
		if err := json.Unmarshal(data, &ident); err != nil {
			return nil, fmt.Errorf("%w: identification: %v", ErrMalformedPayload, err)
		}
		return &Inbound{Kind: InboundIdentification, Client: ident.Client}, nil
	}

	candidate, err := alert.DecodeCandidate(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := candidate.Eligible(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAlert, err)
	}
	return &Inbound{Kind: InboundAlert, Candidate: candidate}, nil
}

// Pipeline admits alert candidates into the history buffer.
type Pipeline struct {
	threshold float64
	dedup     *dedup.Engine
	history   *history.Buffer
}

// NewPipeline creates a pipeline over buf.
func NewPipeline(threshold float64, engine *dedup.Engine, buf *history.Buffer) *Pipeline {
	return &Pipeline{threshold: threshold, dedup: engine, history: buf}
}

// Admission is the result of admitting one candidate.
type Admission struct {
	Alert   *alert.Alert
	Evicted int
}

// Admit applies the confidence filter and duplicate check, then appends the
// accepted alert to history.
func (p *Pipeline) Admit(c *alert.Candidate, now time.Time) (*Admission, error) {
	if c.Confidence == nil {
		return nil, ErrNotAlert
	}
	if *c.Confidence < p.threshold {
		return nil, fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, *c.Confidence, p.threshold)
	}
	if p.dedup.IsDuplicate(c.Preview(now), p.history, now) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, c.Type)
	}

	a := c.Accept(now)
	evicted := p.history.Append(a)
	return &Admission{Alert: a, Evicted: evicted}, nil
}
