// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the tutoring orchestrator.
//
// This file contains the session domain model: sessions, messages, phases,
// and the one-time locked understanding level. Request/response types for
// the HTTP surface live in requests.go.
package datatypes

import (
	"strings"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleTutor   Role = "tutor"
	RoleStudent Role = "student"
)

// Phase identifies which part of the session a tutor turn belongs to.
//
// Diagnostic turns gather evidence of the student's understanding without
// teaching. Tutoring turns act on that evidence.
type Phase string

const (
	PhaseDiagnostic Phase = "diagnostic"
	PhaseTutoring   Phase = "tutoring"
)

const (
	// DiagnosticBoundary is the last turn number that belongs to the
	// diagnostic phase. It is also the number of student messages the
	// level lock waits for before judging.
	DiagnosticBoundary = 5

	// DefaultMaxTurns is the tutor-turn budget of a session.
	DefaultMaxTurns = 10

	// MinLevel and MaxLevel bound the understanding scale.
	MinLevel = 1
	MaxLevel = 5
)

// PhaseForTurn returns the phase a given tutor turn number falls in.
// Turn numbers start at 1.
func PhaseForTurn(turn int) Phase {
	if turn <= DiagnosticBoundary {
		return PhaseDiagnostic
	}
	return PhaseTutoring
}

// Message is a single utterance in a session, appended in arrival order and
// never mutated afterwards.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// LockedLevel is the frozen diagnostic outcome for a session. It is set at
// most once; later lock attempts return the existing value unchanged.
type LockedLevel struct {
	Level        int    `json:"level"`
	Rationale    string `json:"rationale"`
	LockedAtTurn int    `json:"locked_at_turn"`
	Timestamp    int64  `json:"timestamp"`
}

// Session is one tutoring dialogue instance.
//
// TurnCount counts tutor-authored messages and only ever increases, by one,
// when a tutor message is appended. Completed becomes true exactly when
// TurnCount reaches MaxTurns and never reverts.
type Session struct {
	Id         string       `json:"session_id"`
	StudentId  string       `json:"student_id"`
	TopicId    string       `json:"topic_id"`
	Messages   []Message    `json:"messages"`
	TurnCount  int          `json:"turn_count"`
	MaxTurns   int          `json:"max_turns"`
	Completed  bool         `json:"is_complete"`
	Level      *LockedLevel `json:"locked_level,omitempty"`
	CreatedAt  int64        `json:"created_at"`
	LastActive int64        `json:"last_active"`
}

// StudentMessages returns the content of all student-authored messages,
// in order.
func (s *Session) StudentMessages() []string {
	var out []string
	for _, m := range s.Messages {
		if m.Role == RoleStudent {
			out = append(out, m.Content)
		}
	}
	return out
}

// RecentStudentMessages returns up to n of the most recent student-authored
// message contents, oldest first.
func (s *Session) RecentStudentMessages(n int) []string {
	all := s.StudentMessages()
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}

// LastStudentMessage returns the most recent student-authored message, or
// the empty string if the student has not spoken yet.
func (s *Session) LastStudentMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleStudent {
			return s.Messages[i].Content
		}
	}
	return ""
}

// Transcript renders the session as "Role: content" lines, one per message.
// Used for logging and for judge prompts that want the full dialogue.
func (s *Session) Transcript() string {
	var b strings.Builder
	for i, m := range s.Messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch m.Role {
		case RoleTutor:
			b.WriteString("Tutor: ")
		case RoleStudent:
			b.WriteString("Student: ")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

// NewMessage builds a message stamped with the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// ChatMessage is the wire format for LLM chat backends. Roles here are the
// model-facing "system" / "user" / "assistant", not session roles.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
