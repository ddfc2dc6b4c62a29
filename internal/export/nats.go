// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

// Package export publishes accepted alerts to NATS for downstream
// consumers (SIEM bridges, archivers). It is a one-way feed; sessions are
// still served only by the local hub.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/alertrelay/internal/alert"
	"github.com/tomtom215/alertrelay/internal/logging"
	"github.com/tomtom215/alertrelay/internal/metrics"
)

// Header keys set on every published message.
const (
	HeaderAlertID   = "Alert-Id"
	HeaderAlertType = "Alert-Type"
)

// Config configures the NATS publisher.
type Config struct {
	URL            string
	Subject        string
	ClientName     string
	ConnectTimeout time.Duration
	MaxReconnects  int

	// BreakerThreshold consecutive publish failures open the breaker.
	// Default: 5
	BreakerThreshold uint32

	// BreakerTimeout is how long the breaker stays open before a trial
	// publish is allowed.
	// Default: 30s
	BreakerTimeout time.Duration
}

// NATSPublisher is a relay sink publishing each accepted alert as JSON.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	breaker *gobreaker.CircuitBreaker[struct{}]
	log     zerolog.Logger
}

// NewNATSPublisher connects to the configured server. The connection keeps
// reconnecting in the background; publishes made while disconnected are
// buffered by the client.
func NewNATSPublisher(cfg Config) (*NATSPublisher, error) {
	if cfg.Subject == "" {
		return nil, errors.New("nats subject is required")
	}
	log := logging.WithComponent("nats-exporter")

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.ClientName),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrlRedacted()).Msg("reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	threshold := cfg.BreakerThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "nats-exporter",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("publish circuit breaker state changed")
		},
	})

	metrics.CircuitBreakerState.WithLabelValues("nats-exporter").Set(0)

	return &NATSPublisher{nc: nc, subject: cfg.Subject, breaker: breaker, log: log}, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Name identifies the sink in logs and metrics.
func (p *NATSPublisher) Name() string { return "nats" }

// Publish sends a to the configured subject with id and type headers.
// While the breaker is open it fails fast with gobreaker.ErrOpenState.
func (p *NATSPublisher) Publish(a *alert.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", a.ID, err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set(HeaderAlertID, a.ID)
	msg.Header.Set(HeaderAlertType, a.Type)

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.nc.PublishMsg(msg)
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	return nil
}

// BreakerState reports the publish circuit breaker state.
func (p *NATSPublisher) BreakerState() string {
	return p.breaker.State().String()
}

// Connected reports whether the client currently has a server connection.
func (p *NATSPublisher) Connected() bool {
	return p.nc.IsConnected()
}

// Close flushes buffered messages and closes the connection, waiting at most
// until ctx is done.
func (p *NATSPublisher) Close(ctx context.Context) error {
	if p.nc.IsClosed() {
		return nil
	}
	if err := p.nc.FlushWithContext(ctx); err != nil && p.nc.IsConnected() {
		p.log.Warn().Err(err).Msg("flush before close failed")
	}
	p.nc.Close()
	return nil
}
