// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	_ "github.com/tomtom215/alertrelay/docs"
	"github.com/tomtom215/alertrelay/internal/logging"
	"github.com/tomtom215/alertrelay/internal/relay"
)

func init() {
	logging.SetLogger(zerolog.Nop())
}

// startHub runs a relay hub until the test ends.
func startHub(t *testing.T) *relay.Hub {
	t.Helper()
	hub := relay.New(relay.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// stoppedHub returns a hub whose event loop has already exited.
func stoppedHub(t *testing.T) *relay.Hub {
	t.Helper()
	hub := relay.New(relay.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := hub.RunWithContext(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunWithContext() = %v, want context.Canceled", err)
	}
	return hub
}

func newTestRouter(hub RelayHub, mwCfg *ChiMiddlewareConfig, origins []string) http.Handler {
	if mwCfg == nil {
		mwCfg = DefaultChiMiddlewareConfig()
		mwCfg.RateLimitDisabled = true
	}
	return NewRouter(NewHandler(hub, origins), NewChiMiddleware(mwCfg)).SetupChi()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, body []byte) (APIResponse, json.RawMessage) {
	t.Helper()
	var env struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode envelope %s: %v", body, err)
	}
	return env.APIResponse, env.Data
}

func TestStatus(t *testing.T) {
	h := newTestRouter(startHub(t), nil, []string{"*"})

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != StatusText {
		t.Errorf("body = %q, want %q", rec.Body.String(), StatusText)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestAlertas_EmptyIsArray(t *testing.T) {
	h := newTestRouter(startHub(t), nil, []string{"*"})

	rec := get(t, h, "/alertas")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestAlerts_LimitValidation(t *testing.T) {
	h := newTestRouter(startHub(t), nil, []string{"*"})

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantErr  string
	}{
		{"no limit", "", http.StatusOK, ""},
		{"zero", "?limit=0", http.StatusOK, ""},
		{"in range", "?limit=5", http.StatusOK, ""},
		{"not a number", "?limit=abc", http.StatusBadRequest, "INVALID_PARAMETER"},
		{"negative", "?limit=-1", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"too large", "?limit=10001", http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, "/api/v1/alerts"+tt.query)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			env, _ := decodeEnvelope(t, rec.Body.Bytes())
			if tt.wantErr == "" {
				if env.Status != "success" {
					t.Errorf("status field = %q, want success", env.Status)
				}
				if env.Metadata.Count == nil || *env.Metadata.Count != 0 {
					t.Errorf("count = %v, want 0", env.Metadata.Count)
				}
				return
			}
			if env.Error == nil || env.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantErr)
			}
		})
	}
}

func TestMetrics_Snapshot(t *testing.T) {
	h := newTestRouter(startHub(t), nil, []string{"*"})

	rec := get(t, h, "/api/v1/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	_, data := decodeEnvelope(t, rec.Body.Bytes())
	var m RelayMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if m.HistoryCapacity != relay.DefaultConfig().HistoryCapacity {
		t.Errorf("history_capacity = %d, want %d", m.HistoryCapacity, relay.DefaultConfig().HistoryCapacity)
	}
	for _, kind := range []string{"unknown", "observer", "detector"} {
		if n, ok := m.SessionsByKind[kind]; !ok || n != 0 {
			t.Errorf("sessions_by_kind[%s] = %d, %v; want 0, true", kind, n, ok)
		}
	}
	if m.StartedAt.IsZero() {
		t.Error("started_at is zero")
	}
}

func TestHealth(t *testing.T) {
	t.Run("running hub", func(t *testing.T) {
		h := newTestRouter(startHub(t), nil, []string{"*"})

		live := get(t, h, "/api/v1/health/live")
		if live.Code != http.StatusOK {
			t.Errorf("live status = %d, want 200", live.Code)
		}
		if live.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("missing security headers on health endpoint")
		}

		ready := get(t, h, "/api/v1/health/ready")
		if ready.Code != http.StatusOK {
			t.Errorf("ready status = %d, want 200", ready.Code)
		}
	})

	t.Run("exporter state reported without failing readiness", func(t *testing.T) {
		handler := NewHandler(startHub(t), []string{"*"})
		handler.SetExporters(stubExporter{name: "nats", connected: false})
		h := NewRouter(handler, nil).SetupChi()

		rec := get(t, h, "/api/v1/health/ready")
		if rec.Code != http.StatusOK {
			t.Fatalf("ready status = %d, want 200", rec.Code)
		}
		_, data := decodeEnvelope(t, rec.Body.Bytes())
		var body struct {
			Exporters map[string]bool `json:"exporters"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if connected, ok := body.Exporters["nats"]; !ok || connected {
			t.Errorf("exporters = %v, want nats=false", body.Exporters)
		}
	})

	t.Run("stopped hub", func(t *testing.T) {
		h := newTestRouter(stoppedHub(t), nil, []string{"*"})

		if rec := get(t, h, "/api/v1/health/live"); rec.Code != http.StatusOK {
			t.Errorf("live status = %d, want 200", rec.Code)
		}
		rec := get(t, h, "/api/v1/health/ready")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("ready status = %d, want 503", rec.Code)
		}
		env, _ := decodeEnvelope(t, rec.Body.Bytes())
		if env.Status != "not_ready" {
			t.Errorf("status field = %q, want not_ready", env.Status)
		}
		if rec := get(t, h, "/alertas"); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("/alertas status = %d, want 503", rec.Code)
		}
	})
}

type stubExporter struct {
	name      string
	connected bool
}

func (s stubExporter) Name() string   { return s.name }
func (s stubExporter) Connected() bool { return s.connected }

func TestRateLimit(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	h := newTestRouter(startHub(t), cfg, []string{"*"})

	for i := 0; i < 2; i++ {
		if rec := get(t, h, "/api/v1/alerts"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}
	rec := get(t, h, "/api/v1/alerts")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	env, _ := decodeEnvelope(t, rec.Body.Bytes())
	if env.Error == nil || env.Error.Code != "RATE_LIMITED" {
		t.Errorf("error = %+v, want RATE_LIMITED", env.Error)
	}

	// Health probes are not rate limited.
	if rec := get(t, h, "/api/v1/health/live"); rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	h := newTestRouter(startHub(t), nil, []string{"*"})

	rec := get(t, h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "relay_history_size") {
		t.Error("exposition is missing relay_history_size")
	}
}

func TestSwaggerDoc(t *testing.T) {
	h := newTestRouter(startHub(t), nil, []string{"*"})

	rec := get(t, h, "/swagger/doc.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var doc struct {
		Swagger string                     `json:"swagger"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not JSON: %v", err)
	}
	for _, path := range []string{"/alertas", "/ws", "/api/v1/alerts", "/api/v1/metrics"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("doc.json missing path %s", path)
		}
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	h := NewHandler(nil, []string{"https://console.example"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://console.example", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := h.checkWebSocketOrigin(req); got != tt.want {
			t.Errorf("checkWebSocketOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestWebSocket_NilHub(t *testing.T) {
	h := NewHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.WebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

type wsFrame struct {
	Type    string            `json:"type"`
	Status  string            `json:"status"`
	ID      string            `json:"id"`
	Message string            `json:"message"`
	Alerts  []json.RawMessage `json:"alerts"`
	Alerta  json.RawMessage   `json:"alerta"`
}

func dial(t *testing.T, srv *httptest.Server, path string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial %s: %v (status %d)", path, err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f wsFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode frame %s: %v", data, err)
	}
	return f
}

func waitForHistory(t *testing.T, srv *httptest.Server, want int) []map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/alertas")
		if err != nil {
			t.Fatalf("GET /alertas: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		var alerts []map[string]interface{}
		if err := json.Unmarshal(body, &alerts); err != nil {
			t.Fatalf("decode /alertas %s: %v", body, err)
		}
		if len(alerts) == want {
			return alerts
		}
		if time.Now().After(deadline) {
			t.Fatalf("history length = %d, want %d", len(alerts), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocket_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(startHub(t), nil, []string{"*"}))
	defer srv.Close()

	detector := dial(t, srv, "/ws", nil)
	greeting := readFrame(t, detector)
	if greeting.Type != relay.MessageTypeConnection || greeting.Status != relay.StatusConnected || greeting.ID == "" {
		t.Fatalf("greeting = %+v", greeting)
	}

	if err := detector.WriteMessage(websocket.TextMessage, []byte(`{"type":"identification","client":"python"}`)); err != nil {
		t.Fatalf("write identification: %v", err)
	}
	payload := `{"type":"intrusion","confianza":0.92,"fecha":"2026-10-19","hora":"10:00:00","ubicacion":"Puerta norte","camara":"cam-3"}`
	if err := detector.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("write alert: %v", err)
	}

	// The detector receives its own alert back.
	live := readFrame(t, detector)
	if live.Type != relay.MessageTypeNewAlert {
		t.Fatalf("detector frame type = %q, want %q", live.Type, relay.MessageTypeNewAlert)
	}

	alerts := waitForHistory(t, srv, 1)
	if alerts[0]["camara"] != "cam-3" || alerts[0]["type"] != "intrusion" {
		t.Errorf("stored alert = %v", alerts[0])
	}

	// A browser observer connecting on / gets the greeting then the primer.
	observer := dial(t, srv, "/", http.Header{"Origin": []string{"https://console.example"}})
	if f := readFrame(t, observer); f.Type != relay.MessageTypeConnection {
		t.Fatalf("observer first frame = %q, want connection", f.Type)
	}
	primer := readFrame(t, observer)
	if primer.Type != relay.MessageTypeHistory || len(primer.Alerts) != 1 {
		t.Fatalf("observer primer = %+v, want history with 1 alert", primer)
	}

	if err := observer.WriteMessage(websocket.TextMessage, []byte(`{"type":"identification","client":"app"}`)); err != nil {
		t.Fatalf("write identification: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/api/v1/metrics")
		if err != nil {
			t.Fatalf("GET /api/v1/metrics: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		_, data := decodeEnvelope(t, body)
		var m RelayMetrics
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("decode metrics: %v", err)
		}
		if m.SessionsByKind["observer"] == 1 && m.SessionsByKind["detector"] == 1 && m.HistorySize == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics = %+v, want one observer and one detector", m)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(startHub(t), nil, []string{"https://console.example"}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	if err == nil {
		t.Fatal("dial succeeded, want handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %v, want 403", resp)
	}
}
