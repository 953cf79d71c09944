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
	"errors"
	"fmt"
)

// ErrSessionComplete is returned when a turn is sent to a session whose
// turn budget is exhausted. Handlers map it to HTTP 409.
var ErrSessionComplete = errors.New("session already complete")

// DialogueError wraps a dialogue-generation failure. These are surfaced
// to the caller as retryable: no session state was mutated, and the same
// request can simply be reissued.
type DialogueError struct {
	Role string // actor whose generation failed: "tutor" or "student"
	Err  error
}

// Error implements the error interface for DialogueError.
func (e *DialogueError) Error() string {
	return fmt.Sprintf("%s dialogue generation failed: %v", e.Role, e.Err)
}

func (e *DialogueError) Unwrap() error {
	return e.Err
}

// IsDialogueError checks if an error is a DialogueError.
// Handlers use it to pick HTTP 502 with a retryable hint.
func IsDialogueError(err error) bool {
	var de *DialogueError
	return errors.As(err, &de)
}
