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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
)

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestMemoryStore_CreateAndGet(t *testing.T) {
	m := NewMemoryStore()
	sess := m.Create("student_001", "topic_fractions", 0)

	require.NotEmpty(t, sess.Id)
	assert.Equal(t, "student_001", sess.StudentId)
	assert.Equal(t, "topic_fractions", sess.TopicId)
	assert.Equal(t, datatypes.DefaultMaxTurns, sess.MaxTurns)
	assert.Equal(t, 0, sess.TurnCount)
	assert.False(t, sess.Completed)
	assert.Nil(t, sess.Level)

	got, err := m.Get(sess.Id)
	require.NoError(t, err)
	assert.Equal(t, sess.Id, got.Id)
}

func TestMemoryStore_GetUnknown(t *testing.T) {
	m := NewMemoryStore()
	_, err := m.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	m := NewMemoryStore()
	sess := m.Create("s", "t", 0)

	require.NoError(t, m.Delete(sess.Id))
	_, err := m.Get(sess.Id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete(sess.Id), ErrSessionNotFound)
}

// =============================================================================
// Turn Counter Invariant Tests
// =============================================================================

func TestMemoryStore_TutorAppendIncrementsTurnCounter(t *testing.T) {
	m := NewMemoryStore()
	sess := m.Create("s", "t", 3)

	for i := 1; i <= 2; i++ {
		updated, err := m.Append(sess.Id, datatypes.RoleTutor, "question")
		require.NoError(t, err)
		assert.Equal(t, i, updated.TurnCount)
		assert.False(t, updated.Completed)

		updated, err = m.Append(sess.Id, datatypes.RoleStudent, "answer")
		require.NoError(t, err)
		assert.Equal(t, i, updated.TurnCount, "student append must not move the turn counter")
	}
}

func TestMemoryStore_CompletionAtMaxTurns(t *testing.T) {
	m := NewMemoryStore()
	sess := m.Create("s", "t", 2)

	updated, err := m.Append(sess.Id, datatypes.RoleTutor, "turn 1")
	require.NoError(t, err)
	assert.False(t, updated.Completed)

	updated, err = m.Append(sess.Id, datatypes.RoleTutor, "turn 2")
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	// Completion never reverts, even on further appends.
	updated, err = m.Append(sess.Id, datatypes.RoleStudent, "bye")
	require.NoError(t, err)
	assert.True(t, updated.Completed)
}

// =============================================================================
// Level Lock Tests
// =============================================================================

func TestMemoryStore_LockLevel_FirstWriterWins(t *testing.T) {
	m := NewMemoryStore()
	sess := m.Create("s", "t", 0)

	first, err := m.LockLevel(sess.Id, 4, "clear reasoning")
	require.NoError(t, err)
	assert.Equal(t, 4, first.Level)
	assert.Equal(t, "clear reasoning", first.Rationale)

	second, err := m.LockLevel(sess.Id, 1, "overwrite attempt")
	require.NoError(t, err)
	assert.Equal(t, 4, second.Level)
	assert.Equal(t, "clear reasoning", second.Rationale)
}

func TestMemoryStore_LockLevel_ConcurrentAttemptsAgree(t *testing.T) {
	m := NewMemoryStore()
	sess := m.Create("s", "t", 0)

	const n = 16
	results := make([]*datatypes.LockedLevel, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			locked, err := m.LockLevel(sess.Id, 1+i%5, "attempt")
			require.NoError(t, err)
			results[i] = locked
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Equal(t, results[0].Level, results[i].Level)
		assert.Equal(t, results[0].Rationale, results[i].Rationale)
	}
}

func TestMemoryStore_GetLockedLevel_NilUntilSet(t *testing.T) {
	m := NewMemoryStore()
	sess := m.Create("s", "t", 0)

	locked, err := m.GetLockedLevel(sess.Id)
	require.NoError(t, err)
	assert.Nil(t, locked)

	_, err = m.LockLevel(sess.Id, 3, "ok")
	require.NoError(t, err)

	locked, err = m.GetLockedLevel(sess.Id)
	require.NoError(t, err)
	require.NotNil(t, locked)
	assert.Equal(t, 3, locked.Level)
}

// =============================================================================
// Snapshot Isolation Tests
// =============================================================================

func TestMemoryStore_SnapshotsAreIsolated(t *testing.T) {
	m := NewMemoryStore()
	sess := m.Create("s", "t", 0)
	_, err := m.Append(sess.Id, datatypes.RoleTutor, "hello")
	require.NoError(t, err)

	snap, err := m.Get(sess.Id)
	require.NoError(t, err)
	snap.Messages[0].Content = "tampered"
	snap.TurnCount = 99

	fresh, err := m.Get(sess.Id)
	require.NoError(t, err)
	assert.Equal(t, "hello", fresh.Messages[0].Content)
	assert.Equal(t, 1, fresh.TurnCount)
}

// =============================================================================
// Turn Lock Tests
// =============================================================================

func TestMemoryStore_AcquireTurn_Serializes(t *testing.T) {
	m := NewMemoryStore()
	sess := m.Create("s", "t", 0)

	release, err := m.AcquireTurn(sess.Id)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := m.AcquireTurn(sess.Id)
		assert.NoError(t, err)
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never completed after release")
	}
}

func TestMemoryStore_AcquireTurn_Unknown(t *testing.T) {
	m := NewMemoryStore()
	_, err := m.AcquireTurn("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// =============================================================================
// Eviction Tests
// =============================================================================

func TestMemoryStore_EvictIdle(t *testing.T) {
	m := NewMemoryStore()
	stale := m.Create("s1", "t", 0)
	fresh := m.Create("s2", "t", 0)

	// Backdate the stale session.
	m.mu.Lock()
	m.sessions[stale.Id].sess.LastActive = time.Now().Add(-2 * time.Hour).UnixMilli()
	m.mu.Unlock()

	evicted := m.EvictIdle(time.Now().Add(-1 * time.Hour))
	assert.Equal(t, []string{stale.Id}, evicted)

	_, err := m.Get(stale.Id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(fresh.Id)
	assert.NoError(t, err)
}

func TestJanitor_RunNow(t *testing.T) {
	m := NewMemoryStore()
	stale := m.Create("s1", "t", 0)
	m.mu.Lock()
	m.sessions[stale.Id].sess.LastActive = time.Now().Add(-2 * time.Hour).UnixMilli()
	m.mu.Unlock()

	j := NewJanitor(m, JanitorConfig{Interval: time.Minute, IdleTTL: time.Hour})
	evicted := j.RunNow()
	assert.Equal(t, []string{stale.Id}, evicted)
}
