// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianTutor/services/llm"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/assessment"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/roster"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/store"
)

// mockLLM returns a canned reply and records the last message list.
type mockLLM struct {
	response string
	err      error
	calls    int
	gotMsgs  []datatypes.ChatMessage
}

func (m *mockLLM) Chat(_ context.Context, messages []datatypes.ChatMessage, _ llm.GenerationParams) (string, error) {
	m.calls++
	m.gotMsgs = messages
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// mockJudge returns a fixed verdict and records whether it ran.
type mockJudge struct {
	verdict assessment.Judgment
	calls   int
}

func (m *mockJudge) Assess(_ context.Context, _ *roster.Student, _ *roster.Topic, _ []string) assessment.Judgment {
	m.calls++
	return m.verdict
}

func newTestService(t *testing.T, client llm.LLMClient, judge assessment.Judge) (*TutorService, *roster.Roster) {
	t.Helper()
	catalog := roster.Default()
	if judge == nil {
		judge = &mockJudge{verdict: assessment.DefaultJudgment()}
	}
	svc := NewTutorService(store.NewMemoryStore(), client, judge, catalog, nil, nil, 0)
	return svc, catalog
}

func startSession(t *testing.T, svc *TutorService, maxTurns int) string {
	t.Helper()
	resp, err := svc.StartSession(&datatypes.StartSessionRequest{
		StudentId: "student_mia",
		TopicId:   "topic_fractions",
		MaxTurns:  maxTurns,
	})
	require.NoError(t, err)
	return resp.SessionId
}

func TestStartSessionUnknownStudent(t *testing.T) {
	svc, _ := newTestService(t, &mockLLM{response: "ok"}, nil)
	_, err := svc.StartSession(&datatypes.StartSessionRequest{
		StudentId: "student_nobody",
		TopicId:   "topic_fractions",
	})
	assert.ErrorIs(t, err, roster.ErrUnknownStudent)
}

func TestStartSessionUnknownTopic(t *testing.T) {
	svc, _ := newTestService(t, &mockLLM{response: "ok"}, nil)
	_, err := svc.StartSession(&datatypes.StartSessionRequest{
		StudentId: "student_mia",
		TopicId:   "topic_quantum",
	})
	assert.ErrorIs(t, err, roster.ErrUnknownTopic)
}

func TestAdvanceTurnAppendsBothMessages(t *testing.T) {
	client := &mockLLM{response: "I think it's one half, because the parts are equal."}
	svc, _ := newTestService(t, client, nil)
	id := startSession(t, svc, 0)

	resp, err := svc.AdvanceTurn(context.Background(), id, "What fraction of the pizza is shaded?")
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Turn)
	assert.Equal(t, datatypes.PhaseDiagnostic, resp.Phase)
	assert.Equal(t, client.response, resp.StudentResponse)
	assert.False(t, resp.IsComplete)
	assert.Nil(t, resp.LockedLevel)

	sess, err := svc.GetSession(id)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, datatypes.RoleTutor, sess.Messages[0].Role)
	assert.Equal(t, datatypes.RoleStudent, sess.Messages[1].Role)
}

func TestAdvanceTurnStripsVisualAid(t *testing.T) {
	client := &mockLLM{response: "Oh, I see it now."}
	svc, _ := newTestService(t, client, nil)
	id := startSession(t, svc, 0)

	resp, err := svc.AdvanceTurn(context.Background(), id,
		"Look at this.\n<visual>[##--] 2/4 shaded</visual>\nWhat fraction is shaded?")
	require.NoError(t, err)

	assert.Equal(t, "[##--] 2/4 shaded", resp.VisualAid)

	sess, err := svc.GetSession(id)
	require.NoError(t, err)
	assert.NotContains(t, sess.Messages[0].Content, "<visual>")
	// The student never sees the raw tag either.
	for _, m := range client.gotMsgs {
		assert.NotContains(t, m.Content, "<visual>")
	}
}

func TestAdvanceTurnLLMFailureLeavesSessionUntouched(t *testing.T) {
	client := &mockLLM{err: errors.New("backend down")}
	svc, _ := newTestService(t, client, nil)
	id := startSession(t, svc, 0)

	_, err := svc.AdvanceTurn(context.Background(), id, "Hello!")
	require.Error(t, err)
	assert.True(t, IsDialogueError(err))

	sess, getErr := svc.GetSession(id)
	require.NoError(t, getErr)
	assert.Empty(t, sess.Messages)
	assert.Equal(t, 0, sess.TurnCount)
}

func TestAdvanceTurnRejectsCompletedSession(t *testing.T) {
	client := &mockLLM{response: "Okay!"}
	svc, _ := newTestService(t, client, nil)
	id := startSession(t, svc, 2)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := svc.AdvanceTurn(ctx, id, "Next question.")
		require.NoError(t, err)
	}

	_, err := svc.AdvanceTurn(ctx, id, "One more?")
	assert.ErrorIs(t, err, ErrSessionComplete)
}

func TestAdvanceTurnMarksCompletionOnFinalTurn(t *testing.T) {
	client := &mockLLM{response: "Done."}
	svc, _ := newTestService(t, client, nil)
	id := startSession(t, svc, 3)

	ctx := context.Background()
	var last *datatypes.AdvanceTurnResponse
	for i := 0; i < 3; i++ {
		resp, err := svc.AdvanceTurn(ctx, id, "Question.")
		require.NoError(t, err)
		last = resp
	}
	assert.True(t, last.IsComplete)
	assert.Equal(t, 3, last.Turn)
}

func TestAdvanceTurnLocksLevelAtBoundary(t *testing.T) {
	client := &mockLLM{response: "Because both parts are fourths, 1/4 + 2/4 = 3/4."}
	judge := &mockJudge{verdict: assessment.Judgment{Level: 4, Rationale: "solid reasoning", Source: assessment.SourceParsed}}
	svc, _ := newTestService(t, client, judge)
	id := startSession(t, svc, 0)

	ctx := context.Background()
	for i := 0; i < datatypes.DiagnosticBoundary-1; i++ {
		resp, err := svc.AdvanceTurn(ctx, id, "Question.")
		require.NoError(t, err)
		assert.Nil(t, resp.LockedLevel, "lock must not fire before the boundary")
	}
	assert.Equal(t, 0, judge.calls)

	resp, err := svc.AdvanceTurn(ctx, id, "Last diagnostic question.")
	require.NoError(t, err)
	require.NotNil(t, resp.LockedLevel)
	assert.Equal(t, 4, resp.LockedLevel.Level)
	assert.Equal(t, "solid reasoning", resp.LockedLevel.Rationale)
	assert.Equal(t, 1, judge.calls)

	// Further turns must not re-judge.
	_, err = svc.AdvanceTurn(ctx, id, "Tutoring now.")
	require.NoError(t, err)
	assert.Equal(t, 1, judge.calls)
}

func TestGetLevelPendingThenLocked(t *testing.T) {
	client := &mockLLM{response: "hmm"}
	judge := &mockJudge{verdict: assessment.Judgment{Level: 2, Rationale: "shaky", Source: assessment.SourceParsed}}
	svc, _ := newTestService(t, client, judge)
	id := startSession(t, svc, 0)

	lvl, err := svc.GetLevel(id)
	require.NoError(t, err)
	assert.Equal(t, "pending", lvl.Status)

	ctx := context.Background()
	for i := 0; i < datatypes.DiagnosticBoundary; i++ {
		_, err := svc.AdvanceTurn(ctx, id, "Question.")
		require.NoError(t, err)
	}

	lvl, err = svc.GetLevel(id)
	require.NoError(t, err)
	assert.Equal(t, "locked", lvl.Status)
	assert.Equal(t, 2, lvl.Level)
	assert.Equal(t, "shaky", lvl.Rationale)
}

func TestGenerateTutorTurnDoesNotMutate(t *testing.T) {
	client := &mockLLM{response: "Hi Mia! Before we begin, on a scale from 1 to 5..."}
	svc, _ := newTestService(t, client, nil)
	id := startSession(t, svc, 0)

	resp, err := svc.GenerateTutorTurn(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Turn)
	assert.Equal(t, datatypes.PhaseDiagnostic, resp.Phase)
	assert.Contains(t, resp.Directive, "first message")
	assert.False(t, resp.IsLastTurn)

	sess, err := svc.GetSession(id)
	require.NoError(t, err)
	assert.Empty(t, sess.Messages)
	assert.Equal(t, 0, sess.TurnCount)
}

func TestGenerateTutorTurnFlagsLastTurn(t *testing.T) {
	client := &mockLLM{response: "Wrap-up question."}
	svc, _ := newTestService(t, client, nil)
	id := startSession(t, svc, 2)

	ctx := context.Background()
	_, err := svc.AdvanceTurn(ctx, id, "First question.")
	require.NoError(t, err)

	resp, err := svc.GenerateTutorTurn(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Turn)
	assert.True(t, resp.IsLastTurn)
}

func TestGenerateTutorTurnRoleMapping(t *testing.T) {
	client := &mockLLM{response: "Nice work! Why does that rule hold?"}
	svc, _ := newTestService(t, client, nil)
	id := startSession(t, svc, 0)

	ctx := context.Background()
	_, err := svc.AdvanceTurn(ctx, id, "What is 1/2 + 1/4?")
	require.NoError(t, err)

	_, err = svc.GenerateTutorTurn(ctx, id)
	require.NoError(t, err)

	// system, then tutor (assistant), then student (user).
	require.Len(t, client.gotMsgs, 3)
	assert.Equal(t, llm.RoleSystem, client.gotMsgs[0].Role)
	assert.Equal(t, llm.RoleAssistant, client.gotMsgs[1].Role)
	assert.Equal(t, llm.RoleUser, client.gotMsgs[2].Role)
}

func TestDeleteSessionThenNotFound(t *testing.T) {
	svc, _ := newTestService(t, &mockLLM{response: "ok"}, nil)
	id := startSession(t, svc, 0)

	require.NoError(t, svc.DeleteSession(id))
	_, err := svc.GetSession(id)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	_, err = svc.AdvanceTurn(context.Background(), id, "Anyone home?")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestListSessionsSummaries(t *testing.T) {
	svc, _ := newTestService(t, &mockLLM{response: "ok"}, nil)
	startSession(t, svc, 0)
	startSession(t, svc, 0)

	summaries := svc.ListSessions()
	assert.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.Equal(t, "student_mia", s.StudentId)
		assert.Equal(t, datatypes.DefaultMaxTurns, s.MaxTurns)
		assert.False(t, s.IsComplete)
	}
}
