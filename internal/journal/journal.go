// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

// Package journal appends accepted alerts to a JSON-lines file.
//
// Each line is one zerolog event:
//
//	{"time":"2026-10-19T10:00:00Z","alert":{"id":"...","type":"intrusion",...}}
//
// The journal is write-only. The relay never reloads it, so history still
// starts empty after a restart.
package journal

import (
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/alertrelay/internal/alert"
)

// errWriter remembers the most recent write error, which zerolog would
// otherwise only report through its global error handler.
type errWriter struct {
	f   *os.File
	err error
}

func (w *errWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	w.err = err
	return n, err
}

// Journal is an alert sink backed by a file.
type Journal struct {
	mu   sync.Mutex
	w    *errWriter
	log  zerolog.Logger
	path string
}

// Open opens (or creates) path for appending.
func Open(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open alert journal %s: %w", path, err)
	}
	w := &errWriter{f: f}
	return &Journal{
		w:    w,
		log:  zerolog.New(w).With().Timestamp().Logger(),
		path: path,
	}, nil
}

// Name identifies the sink in logs and metrics.
func (j *Journal) Name() string { return "journal" }

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// Publish appends a as one line.
func (j *Journal) Publish(a *alert.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", a.ID, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.w.err = nil
	j.log.Log().RawJSON("alert", data).Send()
	if j.w.err != nil {
		return fmt.Errorf("write alert journal: %w", j.w.err)
	}
	return nil
}

// Close syncs and closes the file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.w.f.Sync(); err != nil {
		_ = j.w.f.Close()
		return fmt.Errorf("sync alert journal: %w", err)
	}
	return j.w.f.Close()
}
