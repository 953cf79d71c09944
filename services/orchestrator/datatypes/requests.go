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
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants for Input Bounds
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single submitted
	// tutor message. Byte length, not rune count.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxIdentifierLength bounds student/topic identifier fields.
	MaxIdentifierLength = 128
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// tutorValidate is the validator instance for tutoring request datatypes.
// Initialized in init() with custom validators.
var tutorValidate *validator.Validate

func init() {
	tutorValidate = validator.New()

	// Custom validator for message content size. Checks byte length to
	// bound memory use on large payloads.
	_ = tutorValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes validates that a string field does not exceed
// MaxMessageContentBytes.
func validateMaxBytes(fl validator.FieldLevel) bool {
	content := fl.Field().String()
	return len(content) <= MaxMessageContentBytes
}

// =============================================================================
// Session Lifecycle Types
// =============================================================================

// StartSessionRequest represents the body for creating a tutoring session.
//
// # Description
//
// StartSessionRequest names the student and the topic the session is about.
// Both identifiers must exist in the roster; unknown identifiers are
// rejected by the handler with 404 rather than failing validation here.
//
// # Validation
//
// Uses go-playground/validator:
//   - StudentId: required, at most 128 characters
//   - TopicId: required, at most 128 characters
//   - MaxTurns: optional, 0 (use default) or 1-100
type StartSessionRequest struct {
	StudentId string `json:"student_id" validate:"required,max=128"`
	TopicId   string `json:"topic_id" validate:"required,max=128"`
	MaxTurns  int    `json:"max_turns" validate:"gte=0,lte=100"`
}

// Validate validates the StartSessionRequest fields.
func (r *StartSessionRequest) Validate() error {
	return tutorValidate.Struct(r)
}

// StartSessionResponse is returned on successful session creation.
type StartSessionResponse struct {
	SessionId string `json:"session_id"`
	StudentId string `json:"student_id"`
	TopicId   string `json:"topic_id"`
	MaxTurns  int    `json:"max_turns"`
}

// SessionSummary is the list-view projection of a session.
type SessionSummary struct {
	SessionId    string `json:"session_id"`
	StudentId    string `json:"student_id"`
	TopicId      string `json:"topic_id"`
	TurnCount    int    `json:"turn_count"`
	MaxTurns     int    `json:"max_turns"`
	IsComplete   bool   `json:"is_complete"`
	LevelLocked  bool   `json:"level_locked"`
	CreatedAt    int64  `json:"created_at"`
	LastActive   int64  `json:"last_active"`
	MessageCount int    `json:"message_count"`
}

// LevelResponse reports the state of a session's level lock.
//
// Status is "locked" once the one-time assessment has run, otherwise
// "pending". Level and Rationale are only present when locked.
type LevelResponse struct {
	SessionId    string `json:"session_id"`
	Status       string `json:"status"`
	Level        int    `json:"level,omitempty"`
	Rationale    string `json:"rationale,omitempty"`
	LockedAtTurn int    `json:"locked_at_turn,omitempty"`
}

// =============================================================================
// Turn Types
// =============================================================================

// AdvanceTurnRequest carries one tutor message into a session.
//
// # Validation
//
//   - TutorMessage: required, at most 32KB (maxbytes custom validator)
type AdvanceTurnRequest struct {
	TutorMessage string `json:"tutor_message" validate:"required,maxbytes"`
}

// Validate validates the AdvanceTurnRequest fields.
func (r *AdvanceTurnRequest) Validate() error {
	return tutorValidate.Struct(r)
}

// AdvanceTurnResponse is the outcome of one executed tutor turn: the
// simulated student's reply plus the session state after both messages
// were appended.
type AdvanceTurnResponse struct {
	SessionId       string       `json:"session_id"`
	Turn            int          `json:"turn"`
	Phase           Phase        `json:"phase"`
	StudentResponse string       `json:"student_response"`
	VisualAid       string       `json:"visual_aid,omitempty"`
	LockedLevel     *LockedLevel `json:"locked_level,omitempty"`
	IsComplete      bool         `json:"is_complete"`
}

// TutorTurnResponse carries a generated tutor message for the upcoming
// turn. Nothing is appended to the session; the caller submits the text
// (edited or not) through the turn endpoint.
type TutorTurnResponse struct {
	SessionId    string       `json:"session_id"`
	Turn         int          `json:"turn"`
	Phase        Phase        `json:"phase"`
	TutorMessage string       `json:"tutor_message"`
	Directive    string       `json:"directive"`
	LockedLevel  *LockedLevel `json:"locked_level,omitempty"`
	IsLastTurn   bool         `json:"is_last_turn"`
}

// ErrorResponse is the uniform error body for the tutoring API.
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}
