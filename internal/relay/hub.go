// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package relay

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/alertrelay/internal/alert"
	"github.com/tomtom215/alertrelay/internal/dedup"
	"github.com/tomtom215/alertrelay/internal/history"
	"github.com/tomtom215/alertrelay/internal/logging"
	"github.com/tomtom215/alertrelay/internal/metrics"
)

// ErrHubStopped is returned by queries made after the hub shut down.
var ErrHubStopped = errors.New("relay hub stopped")

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Sink receives every accepted alert after it has been broadcast. Publish
// runs on the hub goroutine and must not block for long.
type Sink interface {
	Name() string
	Publish(a *alert.Alert) error
}

// Config configures a Hub.
type Config struct {
	HistoryCapacity     int
	PrimerSize          int
	ConfidenceThreshold float64
	Dedup               dedup.Config
	ProbeInterval       time.Duration
	StaleTimeout        time.Duration
	Transport           TransportConfig

	// EventBuffer is the capacity of the hub's event channel.
	EventBuffer int
}

// DefaultConfig returns the relay defaults.
func DefaultConfig() Config {
	return Config{
		HistoryCapacity:     history.DefaultCapacity,
		PrimerSize:          20,
		ConfidenceThreshold: 0.3,
		Dedup:               dedup.DefaultConfig(),
		ProbeInterval:       30 * time.Second,
		StaleTimeout:        90 * time.Second,
		Transport:           DefaultTransportConfig(),
		EventBuffer:         1024,
	}
}

// Snapshot is a point-in-time view of hub state for diagnostics.
type Snapshot struct {
	SessionsByKind  map[string]int
	TotalSessions   int
	HistorySize     int
	HistoryCapacity int
	StartedAt       time.Time
	Sessions        []Session
}

// Hub owns the registry and history and serializes every event through
// RunWithContext.
type Hub struct {
	cfg   Config
	sinks []Sink
	log   zerolog.Logger
	now   func() time.Time

	registry   *Registry
	history    *history.Buffer
	pipeline   *Pipeline
	dispatcher *Dispatcher
	monitor    *Monitor

	// transport tracks every connection handed to the hub, keyed to its
	// arrival order, independently of the registry.
	transport map[Conn]uint64
	connSeq   uint64

	events    chan event
	stopped   chan struct{}
	stopOnce  sync.Once
	startedAt time.Time

	malformedLog *logging.Sampler
	rejectLog    *logging.Sampler
}

// New creates a hub. Non-positive capacities, intervals and timeouts in cfg
// take their defaults. A zero ConfidenceThreshold admits every alert and a
// zero PrimerSize sends no history on connect; both are kept as given.
func New(cfg Config, sinks ...Sink) *Hub {
	defaults := DefaultConfig()
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = defaults.HistoryCapacity
	}
	if cfg.PrimerSize < 0 {
		cfg.PrimerSize = 0
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = defaults.ProbeInterval
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = defaults.StaleTimeout
	}
	if cfg.Transport.SendQueueSize <= 0 {
		cfg.Transport.SendQueueSize = defaults.Transport.SendQueueSize
	}
	if cfg.Transport.WriteTimeout <= 0 {
		cfg.Transport.WriteTimeout = defaults.Transport.WriteTimeout
	}
	if cfg.Transport.MaxMessageBytes <= 0 {
		cfg.Transport.MaxMessageBytes = defaults.Transport.MaxMessageBytes
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaults.EventBuffer
	}

	registry := NewRegistry()
	buf := history.New(cfg.HistoryCapacity)
	engine := dedup.New(cfg.Dedup)

	return &Hub{
		cfg:          cfg,
		sinks:        sinks,
		log:          logging.WithComponent("relay-hub"),
		now:          time.Now,
		registry:     registry,
		history:      buf,
		pipeline:     NewPipeline(cfg.ConfidenceThreshold, engine, buf),
		dispatcher:   NewDispatcher(registry),
		monitor:      NewMonitor(registry, cfg.StaleTimeout),
		transport:    make(map[Conn]uint64),
		events:       make(chan event, cfg.EventBuffer),
		stopped:      make(chan struct{}),
		startedAt:    time.Now(),
		malformedLog: logging.NewSampler(5, 10*time.Second),
		rejectLog:    logging.NewSampler(20, 5*time.Second),
	}
}

// StartedAt returns when the hub was created.
func (h *Hub) StartedAt() time.Time {
	return h.startedAt
}

type event interface{ isEvent() }

type connectEvent struct {
	conn   Conn
	remote string
}

type messageEvent struct {
	conn Conn
	data []byte
	at   time.Time
}

type pongEvent struct{ conn Conn }

type closedEvent struct{ conn Conn }

type queryEvent struct {
	fn   func()
	done chan struct{}
}

func (connectEvent) isEvent() {}
func (messageEvent) isEvent() {}
func (pongEvent) isEvent()    {}
func (closedEvent) isEvent()  {}
func (queryEvent) isEvent()   {}

// post hands an event to the loop. After shutdown events are discarded.
func (h *Hub) post(ev event) {
	select {
	case h.events <- ev:
	case <-h.stopped:
	}
}

// Attach takes ownership of an upgraded WebSocket and starts its pumps.
func (h *Hub) Attach(ws *websocket.Conn, remoteAddr string) {
	c := newWSConn(ws, remoteAddr, h.cfg.Transport)
	h.Connect(c)
	go c.writePump()
	go c.readPump(h)
}

// Connect registers an already-running connection with the hub.
func (h *Hub) Connect(conn Conn) {
	h.post(connectEvent{conn: conn, remote: conn.RemoteAddr()})
}

// RunWithContext runs the event loop until ctx is canceled, then closes
// every connection and returns ctx.Err(). It is designed for suture
// supervision; state survives a restart after a panic.
//
// Shutdown is checked first on every iteration so that a canceled hub
// stops promptly even with a backlog of events.
func (h *Hub) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case ev := <-h.events:
			h.handle(ev)
		case <-ticker.C:
			h.sweep()
		}
	}
}

func (h *Hub) handle(ev event) {
	switch e := ev.(type) {
	case connectEvent:
		h.handleConnect(e.conn, e.remote)
	case messageEvent:
		h.handleMessage(e.conn, e.data, e.at)
	case pongEvent:
		h.monitor.Alive(e.conn, h.now())
	case closedEvent:
		h.handleClosed(e.conn)
	case queryEvent:
		e.fn()
		close(e.done)
	}
}

func (h *Hub) handleConnect(conn Conn, remote string) {
	now := h.now()
	id := h.registry.Register(conn, remote, now)
	h.connSeq++
	h.transport[conn] = h.connSeq

	metrics.RelaySessionsOpened.Inc()
	h.publishSessionGauges()

	h.log.Info().
		Str("session_id", id).
		Str("remote_addr", logging.Sanitize(remote)).
		Int("total_sessions", h.registry.Len()).
		Msg("session connected")

	greeting, err := encodeConnection(id)
	if err == nil {
		err = conn.Send(greeting)
	}
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", id).Msg("failed to greet session")
		return
	}

	recent := h.history.Recent(h.cfg.PrimerSize)
	if len(recent) == 0 {
		return
	}
	primer, err := encodeHistory(recent)
	if err == nil {
		err = conn.Send(primer)
	}
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", id).Msg("failed to send history primer")
	}
}

func (h *Hub) handleClosed(conn Conn) {
	delete(h.transport, conn)
	s, ok := h.registry.Remove(conn)
	if !ok {
		return
	}
	h.publishSessionGauges()
	h.log.Info().
		Str("session_id", s.ID).
		Str("kind", s.Kind.String()).
		Dur("connected_for", h.now().Sub(s.ConnectedAt)).
		Int("total_sessions", h.registry.Len()).
		Msg("session disconnected")
}

func (h *Hub) handleMessage(conn Conn, data []byte, at time.Time) {
	metrics.RelayMessagesReceived.Inc()
	s, ok := h.registry.Get(conn)
	if !ok {
		// Frames queued before the session was reaped or closed.
		metrics.RecordAdmission(metrics.OutcomeIneligible)
		h.log.Debug().Str("remote_addr", conn.RemoteAddr()).Msg("dropped message from removed session")
		return
	}
	h.registry.Touch(conn, at)

	in, err := Classify(data)
	switch {
	case errors.Is(err, ErrMalformedPayload):
		metrics.RecordAdmission(metrics.OutcomeMalformed)
		h.malformedLog.Do(func(suppressed int) {
			h.log.Warn().Err(err).Str("session_id", s.ID).Int("suppressed", suppressed).Msg("dropped malformed message")
		})
		return
	case errors.Is(err, ErrNotAlert):
		metrics.RecordAdmission(metrics.OutcomeIneligible)
		h.log.Debug().Err(err).Str("session_id", s.ID).Msg("ignored message without alert fields")
		return
	case err != nil:
		h.log.Error().Err(err).Str("session_id", s.ID).Msg("unexpected classification error")
		return
	}

	if in.Kind == InboundIdentification {
		h.identify(conn, s, in.Client)
		return
	}
	h.admit(s, in.Candidate, at)
}

func (h *Hub) identify(conn Conn, s Session, client string) {
	kind, known := KindFromClient(client)
	h.registry.SetKind(conn, kind)
	h.publishSessionGauges()
	metrics.RelayIdentifications.WithLabelValues(kind.String()).Inc()

	if !known {
		h.log.Warn().Str("session_id", s.ID).Str("client", logging.Sanitize(client)).Msg("unrecognized client identification")
		return
	}
	h.log.Info().Str("session_id", s.ID).Str("kind", kind.String()).Msg("client identified")
}

func (h *Hub) admit(s Session, c *alert.Candidate, at time.Time) {
	adm, err := h.pipeline.Admit(c, at)
	if err != nil {
		outcome := metrics.OutcomeIneligible
		switch {
		case errors.Is(err, ErrLowConfidence):
			outcome = metrics.OutcomeLowConfidence
		case errors.Is(err, ErrDuplicate):
			outcome = metrics.OutcomeDuplicate
		}
		metrics.RecordAdmission(outcome)
		h.rejectLog.Do(func(suppressed int) {
			h.log.Debug().Err(err).
				Str("session_id", s.ID).
				Str("alert_type", logging.Sanitize(c.Type)).
				Int("suppressed", suppressed).
				Msg("alert rejected")
		})
		return
	}

	a := adm.Alert
	metrics.RecordAdmission(metrics.OutcomeAccepted)
	metrics.RelayHistorySize.Set(float64(h.history.Len()))
	if adm.Evicted > 0 {
		metrics.RelayHistoryEvictions.Add(float64(adm.Evicted))
	}

	start := time.Now()
	report, err := h.dispatcher.Dispatch(a)
	if err != nil {
		h.log.Error().Err(err).Str("alert_id", a.ID).Msg("failed to broadcast alert")
	}
	metrics.RecordDispatch(report.ByKindName(), report.Skipped, report.Dropped, time.Since(start))

	evt := h.log.Info().
		Str("alert_id", a.ID).
		Str("alert_type", logging.Sanitize(a.Type)).
		Float64("confianza", a.Confidence).
		Str("source_session", s.ID).
		Int("delivered", report.Total())
	if report.Dropped > 0 {
		evt = evt.Int("dropped", report.Dropped)
	}
	evt.Msg("alert accepted")

	for _, sink := range h.sinks {
		err := sink.Publish(a)
		metrics.RecordExport(sink.Name(), err)
		if err != nil {
			h.log.Warn().Err(err).Str("sink", sink.Name()).Str("alert_id", a.ID).Msg("sink publish failed")
		}
	}
}

// transportConns returns tracked connections in arrival order.
func (h *Hub) transportConns() []Conn {
	conns := make([]Conn, 0, len(h.transport))
	for c := range h.transport {
		conns = append(conns, c)
	}
	sort.Slice(conns, func(i, j int) bool {
		return h.transport[conns[i]] < h.transport[conns[j]]
	})
	return conns
}

func (h *Hub) sweep() {
	reaps := h.monitor.Sweep(h.transportConns(), h.now())
	for _, r := range reaps {
		delete(h.transport, r.Conn)
		metrics.RecordReap(string(r.Reason))
		h.log.Info().
			Str("session_id", r.Session.ID).
			Str("remote_addr", logging.Sanitize(r.Conn.RemoteAddr())).
			Str("reason", string(r.Reason)).
			Msg("session reaped by liveness monitor")
	}
	if len(reaps) > 0 {
		h.publishSessionGauges()
	}
}

func (h *Hub) publishSessionGauges() {
	counts := h.registry.CountByKind()
	byName := make(map[string]int, len(counts))
	for k, n := range counts {
		byName[k.String()] = n
	}
	metrics.SetSessionCounts(byName)
}

// shutdown closes every connection with a close frame.
func (h *Hub) shutdown(ctx context.Context) {
	h.stopOnce.Do(func() { close(h.stopped) })

	conns := h.transportConns()
	for _, c := range conns {
		c.Close()
		h.registry.Remove(c)
		delete(h.transport, c)
	}
	h.publishSessionGauges()

	reason := ShutdownReasonContextCanceled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = ShutdownReasonContextDeadline
	}
	h.log.Info().
		Str("reason", string(reason)).
		Int("sessions_closed", len(conns)).
		Msg("relay hub stopped")
}

// query runs fn on the hub goroutine and waits for it.
func (h *Hub) query(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case h.events <- queryEvent{fn: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stopped:
		return ErrHubStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stopped:
		return ErrHubStopped
	}
}

// Snapshot returns session counts and buffer occupancy.
func (h *Hub) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := h.query(ctx, func() {
		counts := h.registry.CountByKind()
		byName := make(map[string]int, len(counts))
		for k, n := range counts {
			byName[k.String()] = n
		}
		entries := h.registry.All()
		sessions := make([]Session, len(entries))
		for i := range entries {
			sessions[i] = entries[i].Session
		}
		snap = Snapshot{
			SessionsByKind:  byName,
			TotalSessions:   h.registry.Len(),
			HistorySize:     h.history.Len(),
			HistoryCapacity: h.history.Cap(),
			StartedAt:       h.startedAt,
			Sessions:        sessions,
		}
	})
	return snap, err
}

// History returns a copy of the buffered alerts, oldest first. limit <= 0
// returns all of them.
func (h *Hub) History(ctx context.Context, limit int) ([]*alert.Alert, error) {
	var out []*alert.Alert
	err := h.query(ctx, func() {
		if limit > 0 {
			out = h.history.Recent(limit)
		} else {
			out = h.history.All()
		}
	})
	return out, err
}
