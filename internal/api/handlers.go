// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/alertrelay/internal/alert"
	"github.com/tomtom215/alertrelay/internal/logging"
	"github.com/tomtom215/alertrelay/internal/relay"
	"github.com/tomtom215/alertrelay/internal/validation"
)

// StatusText is the body of GET /.
const StatusText = "Servidor de WebSocket funcionando"

// defaultQueryTimeout bounds how long a handler waits on the hub loop.
const defaultQueryTimeout = 2 * time.Second

// RelayHub is the part of relay.Hub the HTTP layer needs.
type RelayHub interface {
	Attach(ws *websocket.Conn, remoteAddr string)
	Snapshot(ctx context.Context) (relay.Snapshot, error)
	History(ctx context.Context, limit int) ([]*alert.Alert, error)
}

// ConnectionChecker reports an exporter's upstream connection state.
type ConnectionChecker interface {
	Name() string
	Connected() bool
}

// Handler serves the relay's HTTP endpoints.
type Handler struct {
	hub          RelayHub
	exporters    []ConnectionChecker
	origins      []string
	upgrader     websocket.Upgrader
	queryTimeout time.Duration
	startTime    time.Time
}

// NewHandler creates a Handler. origins gates browser WebSocket upgrades
// the same way CORS gates API requests.
func NewHandler(hub RelayHub, origins []string) *Handler {
	h := &Handler{
		hub:          hub,
		origins:      origins,
		queryTimeout: defaultQueryTimeout,
		startTime:    time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// SetExporters registers exporters whose connection state is reported by
// the readiness probe. Exporters reconnect on their own, so a disconnected
// exporter does not make the relay unready.
func (h *Handler) SetExporters(exporters ...ConnectionChecker) {
	h.exporters = exporters
}

// Root upgrades WebSocket handshakes sent to / and otherwise answers with
// the plain-text status line.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.WebSocket(w, r)
		return
	}
	h.Status(w, r)
}

// Status answers with a plain-text liveness line.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(StatusText))
}

// Alertas answers GET /alertas with the whole buffer as a bare JSON array,
// oldest first.
//
// @Summary History dump
// @Tags Alerts
// @Produce json
// @Success 200 {array} alert.Alert
// @Failure 503 {object} APIResponse
// @Router /alertas [get]
func (h *Handler) Alertas(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.history(r.Context(), 0)
	if err != nil {
		h.respondHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// AlertsRequest holds the query parameters of GET /api/v1/alerts.
type AlertsRequest struct {
	Limit int `json:"limit" validate:"min=0,max=10000"`
}

// Alerts answers GET /api/v1/alerts. ?limit=N returns the newest N alerts,
// still oldest first; 0 or absent returns everything.
//
// @Summary List buffered alerts
// @Tags Alerts
// @Produce json
// @Param limit query int false "Newest N alerts (0 = all)" minimum(0) maximum(10000)
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 429 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /api/v1/alerts [get]
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	var req AlertsRequest
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "limit must be an integer", nil)
			return
		}
		req.Limit = n
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondAPIError(w, http.StatusBadRequest, verr.ToAPIError())
		return
	}

	alerts, err := h.history(r.Context(), req.Limit)
	if err != nil {
		h.respondHubError(w, err)
		return
	}
	count := len(alerts)
	respondJSON(w, r, http.StatusOK, alerts, &count)
}

// RelayMetrics is the body of GET /api/v1/metrics.
type RelayMetrics struct {
	SessionsByKind  map[string]int `json:"sessions_by_kind"`
	TotalSessions   int            `json:"total_sessions"`
	HistorySize     int            `json:"history_size"`
	HistoryCapacity int            `json:"history_capacity"`
	StartedAt       time.Time      `json:"started_at"`
	UptimeSeconds   float64        `json:"uptime_seconds"`
}

// Metrics answers GET /api/v1/metrics from a hub snapshot.
//
// @Summary Relay snapshot
// @Tags Diagnostics
// @Produce json
// @Success 200 {object} RelayMetrics
// @Failure 503 {object} APIResponse
// @Router /api/v1/metrics [get]
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.queryTimeout)
	defer cancel()

	snap, err := h.hub.Snapshot(ctx)
	if err != nil {
		h.respondHubError(w, err)
		return
	}
	respondJSON(w, r, http.StatusOK, &RelayMetrics{
		SessionsByKind:  snap.SessionsByKind,
		TotalSessions:   snap.TotalSessions,
		HistorySize:     snap.HistorySize,
		HistoryCapacity: snap.HistoryCapacity,
		StartedAt:       snap.StartedAt,
		UptimeSeconds:   time.Since(snap.StartedAt).Seconds(),
	}, nil)
}

// HealthLive reports that the process is serving HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, nil)
}

// HealthReady reports ready only while the hub event loop answers queries.
//
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /api/v1/health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.queryTimeout)
	defer cancel()

	_, err := h.hub.Snapshot(ctx)
	ready := err == nil

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}
	exporters := make(map[string]bool, len(h.exporters))
	for _, e := range h.exporters {
		exporters[e.Name()] = e.Connected()
	}

	writeJSON(w, statusCode, &APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"hub_running": ready,
			"exporters":   exporters,
			"uptime":      time.Since(h.startTime).Seconds(),
		},
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	})
}

// WebSocket upgrades the request and hands the connection to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Relay hub not available", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).
			Str("remote_addr", logging.Sanitize(r.RemoteAddr)).
			Msg("WebSocket upgrade failed")
		return
	}

	h.hub.Attach(conn, r.RemoteAddr)
}

// checkWebSocketOrigin admits clients without an Origin header (detector
// scripts are not browsers) and browsers whose origin is allowed.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", logging.Sanitize(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

func (h *Handler) history(ctx context.Context, limit int) ([]*alert.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, h.queryTimeout)
	defer cancel()

	alerts, err := h.hub.History(ctx, limit)
	if alerts == nil {
		alerts = []*alert.Alert{}
	}
	return alerts, err
}

func (h *Handler) respondHubError(w http.ResponseWriter, err error) {
	if errors.Is(err, relay.ErrHubStopped) || errors.Is(err, context.DeadlineExceeded) {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Relay hub not available", err)
		return
	}
	respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Relay hub query failed", err)
}
