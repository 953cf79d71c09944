// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
)

// Compile-time interface check.
var _ SessionStore = (*MemoryStore)(nil)

// sessionEntry pairs a session record with its advisory turn lock.
// turnMu serializes whole-turn handling for one session; mu (on the
// store) only guards map access and individual field mutations.
type sessionEntry struct {
	turnMu sync.Mutex
	sess   *datatypes.Session
}

// MemoryStore is the in-memory SessionStore. Sessions live until deleted
// or evicted by the idle janitor.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*sessionEntry),
	}
}

// Create implements SessionStore.
func (m *MemoryStore) Create(studentId, topicId string, maxTurns int) *datatypes.Session {
	if maxTurns <= 0 {
		maxTurns = datatypes.DefaultMaxTurns
	}
	now := time.Now().UnixMilli()
	sess := &datatypes.Session{
		Id:         uuid.New().String(),
		StudentId:  studentId,
		TopicId:    topicId,
		Messages:   make([]datatypes.Message, 0, 2*maxTurns),
		MaxTurns:   maxTurns,
		CreatedAt:  now,
		LastActive: now,
	}

	m.mu.Lock()
	m.sessions[sess.Id] = &sessionEntry{sess: sess}
	m.mu.Unlock()

	return snapshot(sess)
}

// Get implements SessionStore.
func (m *MemoryStore) Get(sessionId string) (*datatypes.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[sessionId]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return snapshot(entry.sess), nil
}

// Append implements SessionStore. A tutor append increments the turn
// counter before the message lands, then updates the completion flag.
// Completion never reverts.
func (m *MemoryStore) Append(sessionId string, role datatypes.Role, content string) (*datatypes.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[sessionId]
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess := entry.sess
	if role == datatypes.RoleTutor {
		sess.TurnCount++
		if sess.TurnCount >= sess.MaxTurns {
			sess.Completed = true
		}
	}
	sess.Messages = append(sess.Messages, datatypes.NewMessage(role, content))
	sess.LastActive = time.Now().UnixMilli()

	return snapshot(sess), nil
}

// LockLevel implements SessionStore. First writer wins; repeated calls
// are no-ops that return the existing record.
func (m *MemoryStore) LockLevel(sessionId string, level int, rationale string) (*datatypes.LockedLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[sessionId]
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess := entry.sess
	if sess.Level != nil {
		existing := *sess.Level
		return &existing, nil
	}
	sess.Level = &datatypes.LockedLevel{
		Level:        level,
		Rationale:    rationale,
		LockedAtTurn: sess.TurnCount,
		Timestamp:    time.Now().UnixMilli(),
	}
	locked := *sess.Level
	return &locked, nil
}

// GetLockedLevel implements SessionStore.
func (m *MemoryStore) GetLockedLevel(sessionId string) (*datatypes.LockedLevel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[sessionId]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if entry.sess.Level == nil {
		return nil, nil
	}
	locked := *entry.sess.Level
	return &locked, nil
}

// List implements SessionStore.
func (m *MemoryStore) List() []*datatypes.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*datatypes.Session, 0, len(m.sessions))
	for _, entry := range m.sessions {
		out = append(out, snapshot(entry.sess))
	}
	return out
}

// Delete implements SessionStore.
func (m *MemoryStore) Delete(sessionId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionId]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, sessionId)
	return nil
}

// AcquireTurn implements SessionStore. The entry's turn mutex lives
// outside the store mutex, so holding it across a whole turn (including
// LLM calls) does not block other sessions or store reads.
func (m *MemoryStore) AcquireTurn(sessionId string) (func(), error) {
	m.mu.RLock()
	entry, ok := m.sessions[sessionId]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	entry.turnMu.Lock()
	return func() { entry.turnMu.Unlock() }, nil
}

// EvictIdle implements SessionStore.
func (m *MemoryStore) EvictIdle(cutoff time.Time) []string {
	cutoffMs := cutoff.UnixMilli()

	m.mu.Lock()
	defer m.mu.Unlock()
	var evicted []string
	for id, entry := range m.sessions {
		if entry.sess.LastActive < cutoffMs {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// snapshot deep-copies a session so callers cannot mutate store state.
func snapshot(sess *datatypes.Session) *datatypes.Session {
	out := *sess
	out.Messages = make([]datatypes.Message, len(sess.Messages))
	copy(out.Messages, sess.Messages)
	if sess.Level != nil {
		level := *sess.Level
		out.Level = &level
	}
	return &out
}
