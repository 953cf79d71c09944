// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store owns all session and message records. It is the only
// shared mutable state in the orchestrator; every other component is a
// pure function over data read from here.
package store

import (
	"errors"
	"time"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
)

// ErrSessionNotFound signals an unknown session identifier.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore is the contract for session state.
//
// All methods return deep-copied snapshots; callers never hold references
// into the store's own records.
type SessionStore interface {
	// Create allocates a new session with an empty message log, turn
	// counter 0, and no locked level. maxTurns <= 0 uses the default.
	Create(studentId, topicId string, maxTurns int) *datatypes.Session

	// Get returns a snapshot of the session.
	Get(sessionId string) (*datatypes.Session, error)

	// Append adds one message. A tutor-authored append increments the
	// turn counter first, then re-evaluates the completion flag.
	Append(sessionId string, role datatypes.Role, content string) (*datatypes.Session, error)

	// LockLevel freezes the level for a session. First writer wins:
	// if a level is already locked the existing record is returned
	// unchanged and the arguments are discarded.
	LockLevel(sessionId string, level int, rationale string) (*datatypes.LockedLevel, error)

	// GetLockedLevel returns the locked level, or nil if the session has
	// not been assessed yet.
	GetLockedLevel(sessionId string) (*datatypes.LockedLevel, error)

	// List returns snapshots of every live session.
	List() []*datatypes.Session

	// Delete removes a session.
	Delete(sessionId string) error

	// AcquireTurn takes the session's advisory turn lock, serializing
	// turn handling for one session. The returned release function must
	// be called on every exit path.
	AcquireTurn(sessionId string) (release func(), err error)

	// EvictIdle removes sessions whose last activity predates the
	// cutoff, returning the evicted session ids.
	EvictIdle(cutoff time.Time) []string
}
