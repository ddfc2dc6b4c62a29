// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package alert

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/alertrelay/internal/validation"
)

// Wire keys used by detectors. The protocol predates this server and keeps
// its Spanish field names.
const (
	KeyID         = "id"
	KeyType       = "type"
	KeyConfidence = "confianza"
	KeyDate       = "fecha"
	KeyTime       = "hora"
	KeyLocation   = "ubicacion"
	KeyReceivedAt = "recibida"
)

// reservedKeys are owned by Alert and never copied into Extra.
var reservedKeys = map[string]struct{}{
	KeyID:         {},
	KeyType:       {},
	KeyConfidence: {},
	KeyDate:       {},
	KeyTime:       {},
	KeyLocation:   {},
	KeyReceivedAt: {},
}

// Alert is one accepted security event. It is immutable once appended to
// the history buffer; callers must not modify a shared *Alert.
type Alert struct {
	ID         string
	Type       string
	Confidence float64
	Date       string
	Time       string
	Location   Location
	ReceivedAt time.Time

	// Extra holds detector fields the relay does not interpret (snapshots,
	// camera ids, model names). They are re-broadcast untouched.
	Extra map[string]json.RawMessage
}

// Candidate is the decoded form of an alert-shaped inbound message before
// admission. Pointer fields distinguish "absent" from zero values.
type Candidate struct {
	Type       string   `json:"type"`
	Confidence *float64 `json:"confianza" validate:"required"`
	Date       string   `json:"fecha" validate:"required"`
	Time       string   `json:"hora" validate:"required"`
	Location   Location `json:"ubicacion"`

	Extra map[string]json.RawMessage `json:"-"`
}

// DecodeCandidate decodes the already-parsed top-level fields of a message.
// A type mismatch on a known field is reported as an error.
func DecodeCandidate(fields map[string]json.RawMessage) (*Candidate, error) {
	c := &Candidate{}

	if raw, ok := fields[KeyType]; ok {
		if err := json.Unmarshal(raw, &c.Type); err != nil {
			return nil, fmt.Errorf("field %s: %w", KeyType, err)
		}
	}
	if raw, ok := fields[KeyConfidence]; ok && !isNull(raw) {
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("field %s: %w", KeyConfidence, err)
		}
		c.Confidence = &v
	}
	if raw, ok := fields[KeyDate]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &c.Date); err != nil {
			return nil, fmt.Errorf("field %s: %w", KeyDate, err)
		}
	}
	if raw, ok := fields[KeyTime]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &c.Time); err != nil {
			return nil, fmt.Errorf("field %s: %w", KeyTime, err)
		}
	}
	if raw, ok := fields[KeyLocation]; ok {
		if err := c.Location.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("field %s: %w", KeyLocation, err)
		}
	}

	for k, v := range fields {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]json.RawMessage)
		}
		c.Extra[k] = v
	}

	return c, nil
}

// Eligible reports whether the candidate carries every field admission
// needs. The returned error names the missing wire fields.
func (c *Candidate) Eligible() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}
	return nil
}

// Accept turns an admitted candidate into an Alert with a fresh id.
func (c *Candidate) Accept(receivedAt time.Time) *Alert {
	a := c.Preview(receivedAt)
	a.ID = uuid.New().String()
	return a
}

// Preview builds an Alert view of the candidate without an id so the
// deduplication engine can compare it against history.
func (c *Candidate) Preview(receivedAt time.Time) *Alert {
	a := &Alert{
		Type:       c.Type,
		Date:       c.Date,
		Time:       c.Time,
		Location:   c.Location,
		ReceivedAt: receivedAt,
		Extra:      c.Extra,
	}
	if c.Confidence != nil {
		a.Confidence = *c.Confidence
	}
	return a
}

// MarshalJSON flattens Extra alongside the known fields, matching the
// object shape detectors originally sent plus the relay-assigned id.
func (a *Alert) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(a.Extra)+7)
	for k, v := range a.Extra {
		out[k] = v
	}
	out[KeyID] = a.ID
	out[KeyType] = a.Type
	out[KeyConfidence] = a.Confidence
	out[KeyDate] = a.Date
	out[KeyTime] = a.Time
	if !a.Location.IsZero() {
		out[KeyLocation] = a.Location
	}
	if !a.ReceivedAt.IsZero() {
		out[KeyReceivedAt] = a.ReceivedAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON; used by the journal reader
// and by tests that inspect broadcast envelopes.
func (a *Alert) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	c, err := DecodeCandidate(fields)
	if err != nil {
		return err
	}

	var receivedAt time.Time
	if raw, ok := fields[KeyReceivedAt]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			receivedAt, _ = time.Parse(time.RFC3339Nano, s)
		}
	}

	*a = *c.Preview(receivedAt)
	if raw, ok := fields[KeyID]; ok {
		if err := json.Unmarshal(raw, &a.ID); err != nil {
			return fmt.Errorf("field %s: %w", KeyID, err)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
