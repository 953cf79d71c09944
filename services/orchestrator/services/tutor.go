// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package services contains the tutoring business logic: the per-turn
// pipeline that ties the store, the strategy selector, the dialogue
// generator, and the level lock together.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianTutor/services/llm"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/assessment"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/eventlog"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/observability"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/prompts"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/roster"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/store"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/strategy"
)

var tracer = otel.Tracer("aleutian.tutor.turns")

const defaultDialogueTimeout = 60 * time.Second

// TutorService orchestrates tutoring sessions.
//
// # Description
//
// One turn flows through: turn lock -> scheduler check (phase/terminal)
// -> strategy directive -> dialogue generation -> store append -> level
// lock trigger -> response. The external LLM calls happen before any
// state mutation, so an upstream failure leaves the session untouched
// and the caller can retry.
//
// # Thread Safety
//
// Safe for concurrent use. Per-session ordering is enforced by the
// store's advisory turn lock, held for the whole turn-handling critical
// section including LLM calls.
type TutorService struct {
	store    store.SessionStore
	client   llm.LLMClient
	judge    assessment.Judge
	roster   *roster.Roster
	selector *strategy.Selector
	events   eventlog.Logger
	metrics  *observability.TutorMetrics
	timeout  time.Duration
}

// NewTutorService wires a TutorService. events and metrics may be nil;
// timeout <= 0 uses the default dialogue timeout.
func NewTutorService(
	sessionStore store.SessionStore,
	client llm.LLMClient,
	judge assessment.Judge,
	catalog *roster.Roster,
	events eventlog.Logger,
	metrics *observability.TutorMetrics,
	timeout time.Duration,
) *TutorService {
	if events == nil {
		events = eventlog.NopLogger{}
	}
	if timeout <= 0 {
		timeout = defaultDialogueTimeout
	}
	return &TutorService{
		store:    sessionStore,
		client:   client,
		judge:    judge,
		roster:   catalog,
		selector: strategy.NewSelector(),
		events:   events,
		metrics:  metrics,
		timeout:  timeout,
	}
}

// =============================================================================
// Session Lifecycle
// =============================================================================

// StartSession creates a session after validating the roster references.
func (s *TutorService) StartSession(req *datatypes.StartSessionRequest) (*datatypes.StartSessionResponse, error) {
	if _, _, err := s.roster.Topic(req.StudentId, req.TopicId); err != nil {
		return nil, err
	}

	sess := s.store.Create(req.StudentId, req.TopicId, req.MaxTurns)
	slog.Info("Tutoring session started",
		"session_id", sess.Id, "student_id", sess.StudentId,
		"topic_id", sess.TopicId, "max_turns", sess.MaxTurns)

	_ = s.events.Log(eventlog.EventSessionStart, sess.Id, 0, map[string]interface{}{
		"student_id": sess.StudentId,
		"topic_id":   sess.TopicId,
		"max_turns":  sess.MaxTurns,
	})
	if s.metrics != nil {
		s.metrics.SessionsStartedTotal.Inc()
		s.metrics.ActiveSessions.Inc()
	}

	return &datatypes.StartSessionResponse{
		SessionId: sess.Id,
		StudentId: sess.StudentId,
		TopicId:   sess.TopicId,
		MaxTurns:  sess.MaxTurns,
	}, nil
}

// GetSession returns one session snapshot.
func (s *TutorService) GetSession(sessionId string) (*datatypes.Session, error) {
	return s.store.Get(sessionId)
}

// ListSessions returns list-view summaries of all live sessions.
func (s *TutorService) ListSessions() []datatypes.SessionSummary {
	sessions := s.store.List()
	out := make([]datatypes.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, datatypes.SessionSummary{
			SessionId:    sess.Id,
			StudentId:    sess.StudentId,
			TopicId:      sess.TopicId,
			TurnCount:    sess.TurnCount,
			MaxTurns:     sess.MaxTurns,
			IsComplete:   sess.Completed,
			LevelLocked:  sess.Level != nil,
			CreatedAt:    sess.CreatedAt,
			LastActive:   sess.LastActive,
			MessageCount: len(sess.Messages),
		})
	}
	return out
}

// DeleteSession removes a session.
func (s *TutorService) DeleteSession(sessionId string) error {
	if err := s.store.Delete(sessionId); err != nil {
		return err
	}
	_ = s.events.Log(eventlog.EventSessionEnd, sessionId, 0, nil)
	if s.metrics != nil {
		s.metrics.ActiveSessions.Dec()
	}
	return nil
}

// GetLevel reports the session's level lock state. A nil LockedLevel is
// not an error: it means the session is still diagnosing.
func (s *TutorService) GetLevel(sessionId string) (*datatypes.LevelResponse, error) {
	sess, err := s.store.Get(sessionId)
	if err != nil {
		return nil, err
	}
	resp := &datatypes.LevelResponse{SessionId: sess.Id, Status: "pending"}
	if sess.Level != nil {
		resp.Status = "locked"
		resp.Level = sess.Level.Level
		resp.Rationale = sess.Level.Rationale
		resp.LockedAtTurn = sess.Level.LockedAtTurn
	}
	return resp, nil
}

// =============================================================================
// Turn Pipeline
// =============================================================================

// AdvanceTurn executes one tutor turn: it accepts the tutor's message,
// generates the simulated student's reply, appends both, and gives the
// level lock a chance to fire.
//
// The student reply is generated before anything is appended. On
// generation failure no partial message lands and the caller gets a
// retryable DialogueError.
func (s *TutorService) AdvanceTurn(ctx context.Context, sessionId, tutorMessage string) (*datatypes.AdvanceTurnResponse, error) {
	ctx, span := tracer.Start(ctx, "TutorService.AdvanceTurn")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionId))

	release, err := s.store.AcquireTurn(sessionId)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.store.Get(sessionId)
	if err != nil {
		return nil, err
	}
	if sess.Completed {
		return nil, fmt.Errorf("session %s: %w", sessionId, ErrSessionComplete)
	}

	student, topic, err := s.roster.Topic(sess.StudentId, sess.TopicId)
	if err != nil {
		return nil, err
	}

	dialogueText, visualAid := ExtractVisualAid(tutorMessage)

	studentReply, err := s.generateStudentReply(ctx, sess, student, topic, dialogueText)
	if err != nil {
		phase := datatypes.PhaseForTurn(sess.TurnCount + 1)
		if s.metrics != nil {
			s.metrics.RecordTurn(string(phase), false)
			s.metrics.RecordError("turn", observability.ErrorCodeLLMError)
		}
		return nil, &DialogueError{Role: "student", Err: err}
	}

	// All external calls succeeded; now mutate.
	if _, err := s.store.Append(sessionId, datatypes.RoleTutor, dialogueText); err != nil {
		return nil, err
	}
	updated, err := s.store.Append(sessionId, datatypes.RoleStudent, studentReply)
	if err != nil {
		return nil, err
	}

	phase := datatypes.PhaseForTurn(updated.TurnCount)
	locked := s.maybeLockLevel(ctx, updated, student, topic)

	_ = s.events.Log(eventlog.EventTurn, sessionId, updated.TurnCount, map[string]interface{}{
		"phase":            string(phase),
		"tutor_message":    dialogueText,
		"student_response": studentReply,
		"visual_aid":       visualAid,
		"is_complete":      updated.Completed,
	})
	if updated.Completed {
		_ = s.events.Log(eventlog.EventSessionComplete, sessionId, updated.TurnCount, nil)
	}
	if s.metrics != nil {
		s.metrics.RecordTurn(string(phase), true)
	}
	slog.Info("Turn executed",
		"session_id", sessionId, "turn", updated.TurnCount,
		"phase", phase, "is_complete", updated.Completed)

	return &datatypes.AdvanceTurnResponse{
		SessionId:       sessionId,
		Turn:            updated.TurnCount,
		Phase:           phase,
		StudentResponse: studentReply,
		VisualAid:       visualAid,
		LockedLevel:     locked,
		IsComplete:      updated.Completed,
	}, nil
}

// GenerateTutorTurn drafts the tutor message for the upcoming turn under
// the strategy selector's directive. Nothing is appended; the caller
// submits the draft through AdvanceTurn.
func (s *TutorService) GenerateTutorTurn(ctx context.Context, sessionId string) (*datatypes.TutorTurnResponse, error) {
	ctx, span := tracer.Start(ctx, "TutorService.GenerateTutorTurn")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionId))

	release, err := s.store.AcquireTurn(sessionId)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.store.Get(sessionId)
	if err != nil {
		return nil, err
	}
	if sess.Completed {
		return nil, fmt.Errorf("session %s: %w", sessionId, ErrSessionComplete)
	}

	student, topic, err := s.roster.Topic(sess.StudentId, sess.TopicId)
	if err != nil {
		return nil, err
	}

	upcomingTurn := sess.TurnCount + 1
	directive := s.selector.Directive(upcomingTurn, sess.RecentStudentMessages(strategy.HeuristicWindow))

	system := prompts.TutorProfile(student.Name, student.GradeLevel, topic.Name, topic.SubjectName) +
		"\n\nInstructions for this turn:\n" + directive
	messages := make([]datatypes.ChatMessage, 0, len(sess.Messages)+1)
	messages = append(messages, datatypes.ChatMessage{Role: llm.RoleSystem, Content: system})
	for _, m := range sess.Messages {
		role := llm.RoleUser
		if m.Role == datatypes.RoleTutor {
			role = llm.RoleAssistant
		}
		messages = append(messages, datatypes.ChatMessage{Role: role, Content: m.Content})
	}

	draft, err := s.chat(ctx, "tutor", messages)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("tutor_turn", observability.ErrorCodeLLMError)
		}
		return nil, &DialogueError{Role: "tutor", Err: err}
	}

	locked, err := s.store.GetLockedLevel(sessionId)
	if err != nil {
		return nil, err
	}

	_ = s.events.Log(eventlog.EventTutorTurnDraft, sessionId, upcomingTurn, map[string]interface{}{
		"directive": directive,
	})

	return &datatypes.TutorTurnResponse{
		SessionId:    sessionId,
		Turn:         upcomingTurn,
		Phase:        datatypes.PhaseForTurn(upcomingTurn),
		TutorMessage: draft,
		Directive:    directive,
		LockedLevel:  locked,
		IsLastTurn:   upcomingTurn >= sess.MaxTurns,
	}, nil
}

// =============================================================================
// Internal Helpers
// =============================================================================

// generateStudentReply asks the LLM for the simulated student's answer to
// the tutor message, without mutating the session.
func (s *TutorService) generateStudentReply(ctx context.Context, sess *datatypes.Session,
	student *roster.Student, topic *roster.Topic, tutorMessage string) (string, error) {

	system := prompts.StudentProfile(student.Name, student.GradeLevel, student.Personality,
		topic.Name, topic.SubjectName)

	// From the student's perspective the tutor is the user and the
	// student's own past replies are the assistant turns.
	messages := make([]datatypes.ChatMessage, 0, len(sess.Messages)+2)
	messages = append(messages, datatypes.ChatMessage{Role: llm.RoleSystem, Content: system})
	for _, m := range sess.Messages {
		role := llm.RoleAssistant
		if m.Role == datatypes.RoleTutor {
			role = llm.RoleUser
		}
		messages = append(messages, datatypes.ChatMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, datatypes.ChatMessage{Role: llm.RoleUser, Content: tutorMessage})

	return s.chat(ctx, "student", messages)
}

// chat wraps one LLM call with the dialogue timeout and latency metrics.
func (s *TutorService) chat(ctx context.Context, role string, messages []datatypes.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	temperature := float32(0.7)
	maxTokens := 400
	start := time.Now()
	reply, err := s.client.Chat(ctx, messages, llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if s.metrics != nil {
		s.metrics.RecordDialogueLatency(role, time.Since(start).Seconds())
	}
	return reply, err
}

// maybeLockLevel runs the one-time level lock if the trigger condition
// is met: no lock yet, and at least DiagnosticBoundary student messages.
// Student messages are the canonical trigger counter; they tolerate
// sessions where tutor and student turns drift out of lockstep.
//
// Judgment failures never propagate; the judge degrades to the default
// verdict, and the store's first-writer-wins rule makes a concurrent
// double trigger harmless.
func (s *TutorService) maybeLockLevel(ctx context.Context, sess *datatypes.Session,
	student *roster.Student, topic *roster.Topic) *datatypes.LockedLevel {

	if sess.Level != nil {
		return sess.Level
	}
	studentLines := sess.StudentMessages()
	if len(studentLines) < datatypes.DiagnosticBoundary {
		return nil
	}

	verdict := s.judge.Assess(ctx, student, topic, studentLines)
	locked, err := s.store.LockLevel(sess.Id, verdict.Level, verdict.Rationale)
	if err != nil {
		// Session vanished mid-turn (deleted or evicted); nothing to lock.
		slog.Warn("Level lock skipped", "session_id", sess.Id, "error", err)
		return nil
	}

	slog.Info("Understanding level locked",
		"session_id", sess.Id, "level", locked.Level,
		"source", verdict.Source, "locked_at_turn", locked.LockedAtTurn)
	_ = s.events.Log(eventlog.EventLevelLocked, sess.Id, sess.TurnCount, map[string]interface{}{
		"level":     locked.Level,
		"rationale": locked.Rationale,
		"source":    verdict.Source,
	})
	if s.metrics != nil {
		s.metrics.RecordLevelLock(observability.LockOutcome(verdict.Source), locked.Level)
	}
	return locked
}
