// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package relay

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/alertrelay/internal/alert"
)

// Message types on the wire.
const (
	MessageTypeConnection     = "connection"
	MessageTypeHistory        = "history"
	MessageTypeIdentification = "identification"
	MessageTypeNewAlert       = "new_alert"
)

// StatusConnected is the status of the greeting sent on connect.
const StatusConnected = "connected"

const greetingText = "Conectado al servidor de alertas"

// ConnectionMessage greets a new session.
type ConnectionMessage struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// HistoryMessage primes a new session with recent alerts, oldest first.
type HistoryMessage struct {
	Type   string         `json:"type"`
	Alerts []*alert.Alert `json:"alerts"`
}

// NewAlertMessage carries one accepted alert to every session.
type NewAlertMessage struct {
	Type   string       `json:"type"`
	Alerta *alert.Alert `json:"alerta"`
}

// IdentificationMessage is sent by clients to declare their role.
type IdentificationMessage struct {
	Type   string `json:"type"`
	Client string `json:"client"`
}

func encodeConnection(sessionID string) ([]byte, error) {
	return json.Marshal(ConnectionMessage{
		Type:    MessageTypeConnection,
		Status:  StatusConnected,
		ID:      sessionID,
		Message: greetingText,
	})
}

func encodeHistory(alerts []*alert.Alert) ([]byte, error) {
	return json.Marshal(HistoryMessage{Type: MessageTypeHistory, Alerts: alerts})
}

func encodeNewAlert(a *alert.Alert) ([]byte, error) {
	return json.Marshal(NewAlertMessage{Type: MessageTypeNewAlert, Alerta: a})
}
