// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assessment produces the one-time understanding level for a
// session by calling an LLM judge over the student's messages.
//
// Every irregularity -- judge call failure, malformed output, missing
// level -- is absorbed here and degrades to a fixed default. A session
// whose trigger condition has been met must always end up with a locked
// level; downstream consumers treat "unset" as "still diagnosing".
package assessment

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianTutor/services/llm"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/prompts"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/roster"
)

const (
	// DefaultLevel is the mid-scale level used when judgment fails.
	DefaultLevel = 3

	// DefaultRationale is the fixed rationale accompanying DefaultLevel
	// on judgment failure. Evaluation tooling matches on this string.
	DefaultRationale = "default (prediction failed)"

	// maxRationaleLen caps rationales recovered from free-text output.
	maxRationaleLen = 200

	defaultJudgeTimeout = 30 * time.Second
)

// Judgment sources, recorded for metrics and the event log.
const (
	SourceParsed        = "parsed"
	SourceDigitFallback = "digit_fallback"
	SourceDefault       = "default"
)

// Judgment is the judge's verdict for one session. Source records which
// parse attempt produced it.
type Judgment struct {
	Level     int    `json:"level"`
	Rationale string `json:"rationale"`
	Source    string `json:"source"`
}

// DefaultJudgment returns the guaranteed fallback verdict.
func DefaultJudgment() Judgment {
	return Judgment{Level: DefaultLevel, Rationale: DefaultRationale, Source: SourceDefault}
}

// =============================================================================
// Parser Chain
// =============================================================================

// A parseAttempt tries to recover a Judgment from raw judge output.
// Returning false hands the raw text to the next attempt in the chain.
type parseAttempt func(raw string) (Judgment, bool)

// parseChain is ordered: structured JSON first, digit scan second. The
// chain terminates in DefaultJudgment, so parsing never fails outright.
var parseChain = []parseAttempt{parseJSONJudgment, parseDigitJudgment}

// ParseJudgment runs the raw judge output through the fallback chain.
func ParseJudgment(raw string) Judgment {
	for _, attempt := range parseChain {
		if j, ok := attempt(raw); ok {
			return j
		}
	}
	return DefaultJudgment()
}

// parseJSONJudgment accepts the output if it contains a JSON object with
// an integer level in range. Tolerates surrounding prose and markdown
// fences by extracting the outermost braces.
func parseJSONJudgment(raw string) (Judgment, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return Judgment{}, false
	}

	var payload struct {
		Level     json.Number `json:"level"`
		Rationale string      `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return Judgment{}, false
	}
	level, err := payload.Level.Int64()
	if err != nil || level < datatypes.MinLevel || level > datatypes.MaxLevel {
		return Judgment{}, false
	}
	return Judgment{Level: int(level), Rationale: payload.Rationale, Source: SourceParsed}, true
}

// parseDigitJudgment scans for the first character in {1..5} and uses it
// as the level, keeping the raw text as a best-effort rationale.
func parseDigitJudgment(raw string) (Judgment, bool) {
	for _, r := range raw {
		if r >= '1' && r <= '5' {
			rationale := strings.TrimSpace(raw)
			if len(rationale) > maxRationaleLen {
				rationale = rationale[:maxRationaleLen]
			}
			return Judgment{Level: int(r - '0'), Rationale: rationale, Source: SourceDigitFallback}, true
		}
	}
	return Judgment{}, false
}

// =============================================================================
// LLM Judge
// =============================================================================

// Judge rates a student's understanding from their messages. Assess
// never returns an error; failures surface as the default judgment.
type Judge interface {
	Assess(ctx context.Context, student *roster.Student, topic *roster.Topic, studentLines []string) Judgment
}

// Compile-time interface check.
var _ Judge = (*LLMJudge)(nil)

// LLMJudge asks an LLM backend for a structured verdict.
type LLMJudge struct {
	client  llm.LLMClient
	timeout time.Duration
}

// NewLLMJudge builds a judge over the given backend. timeout <= 0 uses
// the default.
func NewLLMJudge(client llm.LLMClient, timeout time.Duration) *LLMJudge {
	if timeout <= 0 {
		timeout = defaultJudgeTimeout
	}
	return &LLMJudge{client: client, timeout: timeout}
}

// Assess implements Judge.
func (j *LLMJudge) Assess(ctx context.Context, student *roster.Student, topic *roster.Topic, studentLines []string) Judgment {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	messages := []datatypes.ChatMessage{
		{Role: llm.RoleSystem, Content: prompts.JudgeSystemPrompt},
		{Role: llm.RoleUser, Content: prompts.JudgePrompt(
			student.Name, student.GradeLevel, topic.Name, topic.SubjectName, studentLines)},
	}

	temperature := float32(0.0)
	maxTokens := 200
	raw, err := j.client.Chat(ctx, messages, llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		slog.Warn("Judge call failed, using default level",
			"student_id", student.Id, "topic_id", topic.Id, "error", err)
		return DefaultJudgment()
	}

	verdict := ParseJudgment(raw)
	slog.Info("Judge verdict parsed",
		"student_id", student.Id, "topic_id", topic.Id,
		"level", verdict.Level, "raw_length", len(raw))
	return verdict
}
