// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	runServerURL string // Tutor server base URL
	runStudentId string // Roster student id
	runTopicId   string // Roster topic id
	runTurns     int    // Number of turns to drive (0 = server default)
	runExpected  int    // Ground-truth level for later scoring (0 = unknown)
	runOutPath   string // Results JSONL file to append to
	runQuiet     bool   // Suppress the transcript
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// runCmd drives one full automated session: the server generates the
// tutor message for each turn, the driver submits it back, and the
// simulated student answers. The final locked level is appended to the
// results file together with the expected level.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive one automated tutoring session end to end",
	Long: `Drives a complete tutoring session against a running tutor server.

Each turn asks the server to draft the tutor message, then submits it,
letting the simulated student reply. After the session the locked level
is printed and, together with --expected, appended to the results file
for later scoring.

Examples:
  tutoreval run --student student_mia --topic topic_fractions --expected 4
  tutoreval run --student student_leo --topic topic_newton --turns 6 --quiet`,
	RunE: runSession,
}

func init() {
	runCmd.Flags().StringVar(&runServerURL, "server",
		envOr("TUTOR_SERVER_URL", "http://localhost:12310"), "Tutor server base URL")
	runCmd.Flags().StringVar(&runStudentId, "student", "", "Student id from the roster")
	runCmd.Flags().StringVar(&runTopicId, "topic", "", "Topic id from the roster")
	runCmd.Flags().IntVar(&runTurns, "turns", 0, "Turns to drive (0 uses the server default)")
	runCmd.Flags().IntVar(&runExpected, "expected", 0, "Ground-truth level 1-5 for scoring (0 = unknown)")
	runCmd.Flags().StringVar(&runOutPath, "out", "results.jsonl", "Results JSONL file")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress the transcript")
	_ = runCmd.MarkFlagRequired("student")
	_ = runCmd.MarkFlagRequired("topic")
	rootCmd.AddCommand(runCmd)
}

// =============================================================================
// RESULT RECORD
// =============================================================================

// SessionResult is one line of the results JSONL file.
type SessionResult struct {
	Timestamp      string `json:"timestamp"`
	SessionId      string `json:"session_id"`
	StudentId      string `json:"student_id"`
	TopicId        string `json:"topic_id"`
	Turns          int    `json:"turns"`
	PredictedLevel int    `json:"predicted_level"`
	Rationale      string `json:"rationale,omitempty"`
	ExpectedLevel  int    `json:"expected_level,omitempty"`
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runSession(_ *cobra.Command, _ []string) error {
	client := &http.Client{Timeout: 5 * time.Minute}

	start, err := startSession(client)
	if err != nil {
		return err
	}
	fmt.Printf("Session %s started (%s / %s, max %d turns)\n",
		start.SessionId, start.StudentId, start.TopicId, start.MaxTurns)

	turns := runTurns
	if turns <= 0 || turns > start.MaxTurns {
		turns = start.MaxTurns
	}

	for i := 0; i < turns; i++ {
		draft, err := generateTutorTurn(client, start.SessionId)
		if err != nil {
			return fmt.Errorf("turn %d draft: %w", i+1, err)
		}
		turn, err := advanceTurn(client, start.SessionId, draft.TutorMessage)
		if err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}

		if !runQuiet {
			fmt.Printf("\n--- Turn %d (%s) ---\n", turn.Turn, turn.Phase)
			fmt.Printf("TUTOR:   %s\n", draft.TutorMessage)
			if turn.VisualAid != "" {
				fmt.Printf("VISUAL:  %s\n", turn.VisualAid)
			}
			fmt.Printf("STUDENT: %s\n", turn.StudentResponse)
		}
		if turn.IsComplete {
			fmt.Printf("\nSession complete after %d turns\n", turn.Turn)
			break
		}
	}

	level, err := getLevel(client, start.SessionId)
	if err != nil {
		return err
	}
	if level.Status != "locked" {
		fmt.Println("\nNo level was locked during this session")
		return nil
	}
	fmt.Printf("\nLocked level: %d (%s)\n", level.Level, level.Rationale)

	result := SessionResult{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		SessionId:      start.SessionId,
		StudentId:      start.StudentId,
		TopicId:        start.TopicId,
		Turns:          turns,
		PredictedLevel: level.Level,
		Rationale:      level.Rationale,
		ExpectedLevel:  runExpected,
	}
	return appendResult(runOutPath, result)
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

func startSession(client *http.Client) (*datatypes.StartSessionResponse, error) {
	req := datatypes.StartSessionRequest{
		StudentId: runStudentId,
		TopicId:   runTopicId,
		MaxTurns:  0,
	}
	var resp datatypes.StartSessionResponse
	if err := postJSON(client, runServerURL+"/v1/sessions", req, &resp); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return &resp, nil
}

func generateTutorTurn(client *http.Client, sessionId string) (*datatypes.TutorTurnResponse, error) {
	var resp datatypes.TutorTurnResponse
	url := fmt.Sprintf("%s/v1/sessions/%s/tutor-turn", runServerURL, sessionId)
	if err := postJSON(client, url, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func advanceTurn(client *http.Client, sessionId, tutorMessage string) (*datatypes.AdvanceTurnResponse, error) {
	req := datatypes.AdvanceTurnRequest{TutorMessage: tutorMessage}
	var resp datatypes.AdvanceTurnResponse
	url := fmt.Sprintf("%s/v1/sessions/%s/turns", runServerURL, sessionId)
	if err := postJSON(client, url, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func getLevel(client *http.Client, sessionId string) (*datatypes.LevelResponse, error) {
	url := fmt.Sprintf("%s/v1/sessions/%s/level", runServerURL, sessionId)
	httpResp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get level: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("get level: server returned %d: %s", httpResp.StatusCode, body)
	}
	var resp datatypes.LevelResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("get level: %w", err)
	}
	return &resp, nil
}

func postJSON(client *http.Client, url string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	resp, err := client.Post(url, "application/json", &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, data)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func appendResult(path string, result SessionResult) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(result)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
