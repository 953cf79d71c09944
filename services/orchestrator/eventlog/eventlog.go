// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package eventlog appends structured turn records to a JSONL file so
// sessions can be replayed and evaluated offline. Logging here is a
// collaborator concern: failures are reported but never fail a turn.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event kinds recorded by the orchestrator.
const (
	EventSessionStart    = "session_start"
	EventTurn            = "turn"
	EventTutorTurnDraft  = "tutor_turn_draft"
	EventLevelLocked     = "level_locked"
	EventSessionComplete = "session_complete"
	EventSessionEnd      = "session_end"
)

// logFileMode restricts the event log to owner read/write. Transcripts
// contain student dialogue.
const logFileMode = 0600

// Record is one JSONL line.
type Record struct {
	Timestamp string      `json:"ts"`
	Sequence  int64       `json:"seq"`
	Event     string      `json:"event"`
	SessionId string      `json:"session_id,omitempty"`
	Turn      int         `json:"turn,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Logger is the append-only event sink.
type Logger interface {
	Log(event, sessionId string, turn int, payload interface{}) error
	Close() error
}

// =============================================================================
// File Logger
// =============================================================================

// Compile-time interface check.
var _ Logger = (*FileLogger)(nil)

// FileLogger writes one JSON object per line, serialized via mutex.
// Rotation is handled externally.
type FileLogger struct {
	file     *os.File
	mu       sync.Mutex
	sequence int64
}

// NewFileLogger opens (or creates) the event log at path in append mode,
// creating parent directories as needed.
func NewFileLogger(path string) (*FileLogger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create event log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log %s: %w", path, err)
	}
	return &FileLogger{file: file}, nil
}

// Log implements Logger.
func (l *FileLogger) Log(event, sessionId string, turn int, payload interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sequence++
	record := Record{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Sequence:  l.sequence,
		Event:     event,
		SessionId: sessionId,
		Turn:      turn,
		Payload:   payload,
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal event record: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write event record: %w", err)
	}
	return nil
}

// Close implements Logger.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// =============================================================================
// Nop Logger
// =============================================================================

// NopLogger discards all events. Used when no event log path is
// configured, and in tests.
type NopLogger struct{}

var _ Logger = NopLogger{}

func (NopLogger) Log(string, string, int, interface{}) error { return nil }
func (NopLogger) Close() error                               { return nil }
