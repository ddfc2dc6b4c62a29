// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/alertrelay/internal/alert"
	"github.com/tomtom215/alertrelay/internal/metrics"
)

// startServer runs an in-process NATS server on a random port.
func startServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("create NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestNATSPublisher_Publish(t *testing.T) {
	ns := startServer(t)

	sub, err := nats.Connect(ns.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	received := make(chan *nats.Msg, 1)
	if _, err := sub.ChanSubscribe("relay.alerts", received); err != nil {
		t.Fatal(err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatal(err)
	}

	p, err := NewNATSPublisher(Config{
		URL:            ns.ClientURL(),
		Subject:        "relay.alerts",
		ClientName:     "alertrelay-test",
		ConnectTimeout: 2 * time.Second,
		MaxReconnects:  0,
	})
	if err != nil {
		t.Fatalf("NewNATSPublisher() error = %v", err)
	}
	defer func() { _ = p.Close(context.Background()) }()

	if p.Name() != "nats" || !p.Connected() {
		t.Fatalf("publisher not ready: name=%s connected=%v", p.Name(), p.Connected())
	}

	a := &alert.Alert{
		ID: "a-1", Type: "intrusion", Confidence: 0.8,
		Date: "2026-10-19", Time: "10:00:00",
		Location:   alert.GeoLocation(10, 20, "Warehouse"),
		ReceivedAt: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
	}
	if err := p.Publish(a); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg.Header.Get(HeaderAlertID) != "a-1" || msg.Header.Get(HeaderAlertType) != "intrusion" {
			t.Errorf("headers = %v", msg.Header)
		}
		var got alert.Alert
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if got.ID != "a-1" || got.Location.Label != "Warehouse" {
			t.Errorf("payload alert = %+v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no message received")
	}
}

func TestNewNATSPublisher_RequiresSubject(t *testing.T) {
	if _, err := NewNATSPublisher(Config{URL: nats.DefaultURL}); err == nil {
		t.Error("missing subject should fail")
	}
}

func TestNATSPublisher_CloseIsIdempotent(t *testing.T) {
	ns := startServer(t)
	p, err := NewNATSPublisher(Config{URL: ns.ClientURL(), Subject: "s", ConnectTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
}

func TestNATSPublisher_BreakerOpensOnRepeatedFailures(t *testing.T) {
	ns := startServer(t)
	p, err := NewNATSPublisher(Config{
		URL:              ns.ClientURL(),
		Subject:          "relay.alerts",
		ConnectTimeout:   time.Second,
		BreakerThreshold: 3,
		BreakerTimeout:   time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.BreakerState() != gobreaker.StateClosed.String() {
		t.Fatalf("initial breaker state = %s", p.BreakerState())
	}

	// Publishing on a closed connection fails every time.
	if err := p.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	a := &alert.Alert{ID: "a-1", Type: "intrusion", Date: "2026-10-19", Time: "10:00:00"}
	for i := 0; i < 3; i++ {
		err := p.Publish(a)
		if !errors.Is(err, nats.ErrConnectionClosed) {
			t.Fatalf("publish %d error = %v, want ErrConnectionClosed", i, err)
		}
	}

	if err := p.Publish(a); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("publish with open breaker = %v, want ErrOpenState", err)
	}
	if p.BreakerState() != gobreaker.StateOpen.String() {
		t.Errorf("breaker state = %s, want open", p.BreakerState())
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("nats-exporter")); got != 2 {
		t.Errorf("circuit_breaker_state = %v, want 2", got)
	}
}
