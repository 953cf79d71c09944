// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package strategy computes the per-turn behavioral directive handed to
// the tutor-side dialogue generator.
//
// # Description
//
// The selector is a pure function over (turn number, recent student
// messages). It runs on every turn, so it must stay cheap: all scoring is
// case-insensitive substring matching against small fixed marker lists.
// The heuristic level estimate produced here is advisory only; the
// authoritative locked level comes from the assessment package.
package strategy

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/prompts"
)

// MarkerSet is one tagged list of lexical signals with a score weight.
// A set contributes its weight at most once per message, however many of
// its markers match.
type MarkerSet struct {
	Name    string
	Weight  int
	Markers []string
}

// confusionSetName identifies the marker set that also drives the binary
// confused/not-confused branch.
const confusionSetName = "confusion"

// DefaultMarkerSets is the stock scoring configuration. The sets are
// pluggable so the lexicon can be tuned without touching the state
// machine.
func DefaultMarkerSets() []MarkerSet {
	return []MarkerSet{
		{
			Name:   confusionSetName,
			Weight: -2,
			Markers: []string{
				"i don't know", "i dont know", "not sure", "confused",
				"i am lost", "i'm lost", "don't understand", "dont understand",
				"no idea",
			},
		},
		{
			Name:    "hedging",
			Weight:  -1,
			Markers: []string{"maybe", "i think", "not sure", "i guess"},
		},
		{
			Name:    "reasoning",
			Weight:  1,
			Markers: []string{"because", "therefore", "since"},
		},
		{
			Name:    "self-correction",
			Weight:  1,
			Markers: []string{"wait", "actually"},
		},
	}
}

const (
	// HeuristicWindow is how many recent student messages feed the level
	// estimate.
	HeuristicWindow = 3

	// midLevel is the safe default estimate when no student messages
	// exist yet.
	midLevel = 3
)

// Selector derives directives from recent dialogue. Zero-value is not
// usable; construct with NewSelector.
type Selector struct {
	markerSets []MarkerSet
}

// NewSelector builds a Selector with the given marker sets, falling back
// to DefaultMarkerSets when none are supplied.
func NewSelector(sets ...MarkerSet) *Selector {
	if len(sets) == 0 {
		sets = DefaultMarkerSets()
	}
	return &Selector{markerSets: sets}
}

// IsConfused reports whether the message trips any confusion marker.
// An empty message defaults to not confused.
func (s *Selector) IsConfused(message string) bool {
	lower := strings.ToLower(message)
	for _, set := range s.markerSets {
		if set.Name != confusionSetName {
			continue
		}
		for _, marker := range set.Markers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

// EstimateLevel computes the coarse 1-5 heuristic from the given recent
// student messages (at most HeuristicWindow are considered, most recent
// last). With no messages it returns the mid-scale default.
func (s *Selector) EstimateLevel(recent []string) int {
	if len(recent) == 0 {
		return midLevel
	}
	if len(recent) > HeuristicWindow {
		recent = recent[len(recent)-HeuristicWindow:]
	}

	score := 0
	for _, msg := range recent {
		lower := strings.ToLower(msg)
		for _, set := range s.markerSets {
			for _, marker := range set.Markers {
				if strings.Contains(lower, marker) {
					score += set.Weight
					break
				}
			}
		}
		if strings.ContainsAny(lower, "0123456789") {
			score++
		}
	}

	switch {
	case score <= -3:
		return 1
	case score <= -1:
		return 2
	case score <= 1:
		return 3
	case score <= 3:
		return 4
	default:
		return 5
	}
}

// Directive produces the behavioral constraint for the tutor turn with
// the given number. recent holds recent student messages, most recent
// last; it may be empty (first turn, or the student has not spoken yet).
func (s *Selector) Directive(turn int, recent []string) string {
	if turn <= 1 {
		return openingDirective()
	}

	lastStudent := ""
	if len(recent) > 0 {
		lastStudent = recent[len(recent)-1]
	}
	confused := s.IsConfused(lastStudent)
	phase := datatypes.PhaseForTurn(turn)

	if phase == datatypes.PhaseDiagnostic {
		if confused {
			return "The student seems stuck. Give one short clarification of what was " +
				"being asked, then ask exactly one simple check question. Never more " +
				"than one question. Do not teach or explain the topic yet."
		}
		return "Ask at most two short diagnostic questions to gauge the student's " +
			"understanding. At least one question must ask the student to justify " +
			"their answer (why, or how they got it). Do not teach or explain yet."
	}

	if confused {
		return "The student is confused by the previous exchange. First resolve that " +
			"confusion in 2-3 plain sentences, then ask exactly one focused check " +
			"question to confirm it landed."
	}
	if s.EstimateLevel(recent) >= 4 {
		return "The student is doing well. Ask one transfer or \"why\" question that " +
			"applies the concept to a new example, and require a one-sentence " +
			"justification with the answer. Keep any explanation minimal."
	}
	return "Give a concise explanation (2-3 sentences) of the next idea, then one " +
		"practice question, and ask the student for a short reason along with " +
		"their answer."
}

// openingDirective is the fixed structural template for turn 1. Every
// session starts with the same shape of diagnostic material regardless
// of topic.
func openingDirective() string {
	return fmt.Sprintf(`This is the first message of the session. Follow this structure exactly:
1. Greet the student warmly by name, in one sentence.
2. Ask the following self-rating question, verbatim:
%s
3. Ask exactly three short diagnostic questions about the topic, labeled
"Easy:", "Medium:", and "Hard:". Together they should cover terminology,
a simple computation or application, and a common misconception.
Ask for answers in a numbered list. Do not teach or explain anything yet.`, prompts.SelfRatingQuestion)
}
