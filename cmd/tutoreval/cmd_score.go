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
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var scoreInputPath string // Results JSONL file produced by `tutoreval run`

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// scoreCmd aggregates a results file into prediction accuracy numbers.
// Records without an expected level are counted but not scored.
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score level predictions from a results file",
	Long: `Reads a results JSONL file and reports prediction accuracy.

Two accuracy figures are reported: exact match, and within-one-level
(a prediction off by a single level still indicates the right tier).

Example:
  tutoreval score --input results.jsonl`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scoreInputPath, "input", "results.jsonl",
		"Results JSONL file produced by `tutoreval run`")
	rootCmd.AddCommand(scoreCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runScore(_ *cobra.Command, _ []string) error {
	f, err := os.Open(scoreInputPath)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	var total, scored, exact, withinOne int
	levelCounts := make(map[int]int)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var result SessionResult
		if err := json.Unmarshal(line, &result); err != nil {
			return fmt.Errorf("line %d: %w", total+1, err)
		}
		total++
		levelCounts[result.PredictedLevel]++

		if result.ExpectedLevel == 0 {
			continue
		}
		scored++
		diff := result.PredictedLevel - result.ExpectedLevel
		if diff < 0 {
			diff = -diff
		}
		if diff == 0 {
			exact++
		}
		if diff <= 1 {
			withinOne++
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read results file: %w", err)
	}

	fmt.Printf("Sessions:        %d\n", total)
	fmt.Printf("With ground truth: %d\n", scored)
	fmt.Println("Predicted level distribution:")
	for level := 1; level <= 5; level++ {
		fmt.Printf("  level %d: %d\n", level, levelCounts[level])
	}
	if scored == 0 {
		fmt.Println("No records carried an expected level; nothing to score")
		return nil
	}
	fmt.Printf("Exact match:     %d/%d (%.1f%%)\n", exact, scored,
		100*float64(exact)/float64(scored))
	fmt.Printf("Within one level: %d/%d (%.1f%%)\n", withinOne, scored,
		100*float64(withinOne)/float64(scored))
	return nil
}
