// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"
)

// =============================================================================
// Phase Tests
// =============================================================================

func TestPhaseForTurn_DiagnosticRange(t *testing.T) {
	for turn := 1; turn <= DiagnosticBoundary; turn++ {
		if got := PhaseForTurn(turn); got != PhaseDiagnostic {
			t.Errorf("turn %d: expected diagnostic, got %s", turn, got)
		}
	}
}

func TestPhaseForTurn_TutoringRange(t *testing.T) {
	for turn := DiagnosticBoundary + 1; turn <= DefaultMaxTurns; turn++ {
		if got := PhaseForTurn(turn); got != PhaseTutoring {
			t.Errorf("turn %d: expected tutoring, got %s", turn, got)
		}
	}
}

// =============================================================================
// Session Helper Tests
// =============================================================================

func sampleSession() *Session {
	return &Session{
		Id: "s-1",
		Messages: []Message{
			{Role: RoleTutor, Content: "Hi! What do you know about fractions?"},
			{Role: RoleStudent, Content: "Not much, maybe a 2."},
			{Role: RoleTutor, Content: "What is 1/2 + 1/4?"},
			{Role: RoleStudent, Content: "I think 3/4."},
		},
		TurnCount: 2,
		MaxTurns:  DefaultMaxTurns,
	}
}

func TestSession_StudentMessages(t *testing.T) {
	s := sampleSession()
	got := s.StudentMessages()
	if len(got) != 2 {
		t.Fatalf("expected 2 student messages, got %d", len(got))
	}
	if got[0] != "Not much, maybe a 2." || got[1] != "I think 3/4." {
		t.Errorf("unexpected messages: %v", got)
	}
}

func TestSession_RecentStudentMessages_Truncates(t *testing.T) {
	s := sampleSession()
	got := s.RecentStudentMessages(1)
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if got[0] != "I think 3/4." {
		t.Errorf("expected most recent message, got %q", got[0])
	}
}

func TestSession_LastStudentMessage_Empty(t *testing.T) {
	s := &Session{Messages: []Message{{Role: RoleTutor, Content: "Hello"}}}
	if got := s.LastStudentMessage(); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestSession_Transcript(t *testing.T) {
	s := sampleSession()
	tr := s.Transcript()
	lines := strings.Split(tr, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Tutor: ") {
		t.Errorf("expected tutor prefix, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Student: ") {
		t.Errorf("expected student prefix, got %q", lines[1])
	}
}

// =============================================================================
// Request Validation Tests
// =============================================================================

func TestStartSessionRequest_Validate_Success(t *testing.T) {
	req := &StartSessionRequest{StudentId: "student_001", TopicId: "topic_fractions"}
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got error: %v", err)
	}
}

func TestStartSessionRequest_Validate_MissingStudent(t *testing.T) {
	req := &StartSessionRequest{TopicId: "topic_fractions"}
	if err := req.Validate(); err == nil {
		t.Error("expected error for missing student_id, got nil")
	}
}

func TestStartSessionRequest_Validate_MaxTurnsOutOfRange(t *testing.T) {
	req := &StartSessionRequest{StudentId: "s", TopicId: "t", MaxTurns: 101}
	if err := req.Validate(); err == nil {
		t.Error("expected error for max_turns > 100, got nil")
	}
}

func TestAdvanceTurnRequest_Validate_Success(t *testing.T) {
	req := &AdvanceTurnRequest{TutorMessage: "What is a numerator?"}
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got error: %v", err)
	}
}

func TestAdvanceTurnRequest_Validate_Empty(t *testing.T) {
	req := &AdvanceTurnRequest{}
	if err := req.Validate(); err == nil {
		t.Error("expected error for empty tutor_message, got nil")
	}
}

func TestAdvanceTurnRequest_Validate_Oversized(t *testing.T) {
	req := &AdvanceTurnRequest{TutorMessage: strings.Repeat("a", MaxMessageContentBytes+1)}
	if err := req.Validate(); err == nil {
		t.Error("expected error for oversized tutor_message, got nil")
	}
}
